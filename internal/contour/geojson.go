package contour

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders the document as GeoJSON LineStrings styled for
// map viewers that honour simplestyle properties.
func (d *Document) FeatureCollection(strokeWidth float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i, c := range d.Contours {
		for _, p := range c.Paths {
			ls := make(orb.LineString, len(p.X))
			for j := range p.X {
				ls[j] = orb.Point{p.X[j], p.Y[j]}
			}

			f := geojson.NewFeature(ls)
			f.Properties["stroke"] = p.LineColor.Hex()
			f.Properties["stroke-width"] = strokeWidth
			f.Properties["stroke-opacity"] = 1
			f.Properties["title"] = p.Label
			f.Properties["level-index"] = i
			f.Properties["level-value"] = c.Level
			fc.Append(f)
		}
	}
	return fc
}
