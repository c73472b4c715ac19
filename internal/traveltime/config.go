package traveltime

import (
	"errors"
	"fmt"
	"math"

	"github.com/i474232898/travel-time-contours/internal/grid"
)

var (
	// ErrConfiguration is returned for invalid interpolation settings.
	ErrConfiguration = errors.New("invalid interpolation configuration")

	// ErrInterpolationIncomplete is returned when a worker's chunk never arrives.
	ErrInterpolationIncomplete = errors.New("interpolation incomplete")
)

// InterpolationConfig describes the grid and the last-mile model.
type InterpolationConfig struct {
	LonStart float64
	LonEnd   float64
	LatStart float64
	LatEnd   float64
	LonStep  float64
	LatStep  float64

	// Workers is the number of latitude chunks computed in parallel.
	Workers int

	// Nearest is how many nearby stations are tried per cell.
	Nearest int

	// LastMileSpeedKmh extends a station's travel time to surrounding cells.
	LastMileSpeedKmh float64

	// Progress enables per-worker DEBUG progress logging.
	Progress bool
}

// Validate checks the configuration and reports the first problem found.
func (c InterpolationConfig) Validate() error {
	if _, _, err := c.Axes(); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrConfiguration, c.Workers)
	}
	if c.Nearest <= 0 {
		return fmt.Errorf("%w: nearest must be positive, got %d", ErrConfiguration, c.Nearest)
	}
	if !(c.LastMileSpeedKmh > 0) || math.IsInf(c.LastMileSpeedKmh, 0) {
		return fmt.Errorf("%w: last-mile speed must be positive, got %v", ErrConfiguration, c.LastMileSpeedKmh)
	}
	return nil
}

// Axes returns the lon and lat sampling of the grid.
func (c InterpolationConfig) Axes() (lon, lat grid.Axis, err error) {
	lon, err = grid.NewAxis(c.LonStart, c.LonEnd, c.LonStep)
	if err != nil {
		return lon, lat, fmt.Errorf("%w: longitude: %v", ErrConfiguration, err)
	}
	lat, err = grid.NewAxis(c.LatStart, c.LatEnd, c.LatStep)
	if err != nil {
		return lon, lat, fmt.Errorf("%w: latitude: %v", ErrConfiguration, err)
	}
	return lon, lat, nil
}

// MinutesPerMeter converts last-mile distance to minutes.
func (c InterpolationConfig) MinutesPerMeter() float64 {
	return 60.0 / (c.LastMileSpeedKmh * 1000.0)
}
