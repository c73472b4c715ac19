package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/travel-time-contours/internal/contour"
	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

// RegionConfig is the contour region and algorithm settings read from YAML.
type RegionConfig struct {
	LonStart float64 `yaml:"lon_start" validate:"gte=-180,lte=180"`
	LonEnd   float64 `yaml:"lon_end" validate:"gte=-180,lte=180,gtfield=LonStart"`
	LatStart float64 `yaml:"lat_start" validate:"gte=-90,lte=90"`
	LatEnd   float64 `yaml:"lat_end" validate:"gte=-90,lte=90,gtfield=LatStart"`

	// StepDeg is the longitude step; latitude uses half of it unless LatStepDeg is set.
	StepDeg    float64 `yaml:"stepsize_deg" validate:"gt=0"`
	LatStepDeg float64 `yaml:"lat_stepsize_deg" validate:"gte=0"`

	Workers      int     `yaml:"n_processes" validate:"gte=1,lte=256"`
	Nearest      int     `yaml:"n_nearest" validate:"gte=1"`
	CycleSpeed   float64 `yaml:"cycle_speed_kmh" validate:"gt=0"`
	ShowProgress bool    `yaml:"show_progress"`

	MinAngleDeg float64 `yaml:"min_angle_between_segments" validate:"gte=0,lte=180"`
	Method      string  `yaml:"simplify_method" validate:"omitempty,oneof=angle douglas-peucker"`
	Epsilon     float64 `yaml:"simplify_epsilon_deg" validate:"gte=0"`

	Levels      []float64 `yaml:"levels" validate:"omitempty,dive,gt=0"`
	StrokeWidth float64   `yaml:"stroke_width" validate:"gte=0"`
}

// DefaultRegion covers the Netherlands and Belgium.
func DefaultRegion() RegionConfig {
	return RegionConfig{
		LonStart:    3.0,
		LonEnd:      9.5,
		LatStart:    50.5,
		LatEnd:      53.75,
		StepDeg:     0.005,
		Workers:     4,
		Nearest:     20,
		CycleSpeed:  18.0,
		MinAngleDeg: 7,
		Method:      contour.MethodAngle,
		StrokeWidth: 1,
	}
}

// LoadRegion reads path over the defaults. A missing file yields the defaults.
func LoadRegion(path string) (RegionConfig, error) {
	cfg := DefaultRegion()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("INFO: region file %s not found; using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return RegionConfig{}, fmt.Errorf("reading region config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RegionConfig{}, fmt.Errorf("parsing region config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RegionConfig{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (r RegionConfig) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("invalid region config: %w", err)
	}
	return nil
}

func (r RegionConfig) latStep() float64 {
	if r.LatStepDeg > 0 {
		return r.LatStepDeg
	}
	return r.StepDeg / 2
}

// Interpolation maps the region onto the interpolator settings.
func (r RegionConfig) Interpolation() traveltime.InterpolationConfig {
	return traveltime.InterpolationConfig{
		LonStart:         r.LonStart,
		LonEnd:           r.LonEnd,
		LatStart:         r.LatStart,
		LatEnd:           r.LatEnd,
		LonStep:          r.StepDeg,
		LatStep:          r.latStep(),
		Workers:          r.Workers,
		Nearest:          r.Nearest,
		LastMileSpeedKmh: r.CycleSpeed,
		Progress:         r.ShowProgress,
	}
}

// Simplifier maps the region onto the contour simplifier. Output precision
// follows the finer of the two grid steps.
func (r RegionConfig) Simplifier() contour.Simplifier {
	step := r.StepDeg
	if ls := r.latStep(); ls < step {
		step = ls
	}
	return contour.Simplifier{
		Method:      r.Method,
		MinAngleDeg: r.MinAngleDeg,
		Epsilon:     r.Epsilon,
		Digits:      contour.DigitsForStep(step),
	}
}

// ContourLevels returns the configured levels or the defaults.
func (r RegionConfig) ContourLevels() []float64 {
	if len(r.Levels) == 0 {
		return traveltime.DefaultLevels()
	}
	out := make([]float64, len(r.Levels))
	copy(out, r.Levels)
	return out
}
