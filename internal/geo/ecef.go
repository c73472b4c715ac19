// Package geo converts geodetic coordinates and answers nearest-station queries.
package geo

import "math"

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84E2 = 6.69437999014e-3
)

// Vec3 is an Earth-centred, Earth-fixed position in metres.
type Vec3 [3]float64

// ToECEF converts latitude and longitude (degrees) and altitude (metres)
// to ECEF coordinates. Out-of-range input yields NaN components.
func ToECEF(lat, lon, alt float64) Vec3 {
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)

	// Prime vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Vec3{
		(n + alt) * cosLat * math.Cos(lonRad),
		(n + alt) * cosLat * math.Sin(lonRad),
		(n*(1-wgs84E2) + alt) * sinLat,
	}
}

// Distance returns the straight-line distance to w in metres.
func (v Vec3) Distance(w Vec3) float64 {
	return math.Sqrt(v.distanceSq(w))
}

func (v Vec3) distanceSq(w Vec3) float64 {
	dx := v[0] - w[0]
	dy := v[1] - w[1]
	dz := v[2] - w[2]
	return dx*dx + dy*dy + dz*dz
}
