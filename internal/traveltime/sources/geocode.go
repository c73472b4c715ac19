package sources

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

// Geocoder resolves a station name to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, name, country string) (lat, lon float64, err error)
}

// GoogleGeocoder resolves station names with the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
}

// NewGoogleGeocoder creates a GoogleGeocoder using apiKey.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

// geocoder keeps its key in a package variable.
var geocoderMu sync.Mutex

func (g *GoogleGeocoder) Locate(ctx context.Context, name, country string) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if g.apiKey == "" {
		return 0, 0, fmt.Errorf("geocoder API key not configured")
	}

	geocoderMu.Lock()
	defer geocoderMu.Unlock()

	geocoder.ApiKey = g.apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{
		Street:  "Station " + name,
		City:    name,
		Country: country,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding %q: %w", name, err)
	}
	return loc.Latitude, loc.Longitude, nil
}
