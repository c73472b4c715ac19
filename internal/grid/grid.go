// Package grid holds dense lon/lat travel-time surfaces and the operations
// that combine and persist them.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmptyInput is returned when an operation receives nothing to work on.
	ErrEmptyInput = errors.New("empty input")

	// ErrDimensionMismatch is returned when grids of different shape are combined.
	ErrDimensionMismatch = errors.New("grid dimensions differ")

	// ErrBadAxis is returned for a non-positive step or an empty range.
	ErrBadAxis = errors.New("invalid grid axis")
)

// Unknown marks a cell without any reachable station.
var Unknown = math.Inf(1)

// IsUnknown reports whether v is the unknown sentinel. NaN and the
// math.MaxFloat64 marker used by older grids count as unknown too.
func IsUnknown(v float64) bool {
	return math.IsInf(v, 1) || math.IsNaN(v) || v >= math.MaxFloat64
}

// Axis is an arange-style sampling: Count values Start, Start+Step, ...
type Axis struct {
	Start float64 `json:"start"`
	Step  float64 `json:"step"`
	Count int     `json:"count"`
}

// NewAxis samples [start, end) with the given step.
func NewAxis(start, end, step float64) (Axis, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return Axis{}, fmt.Errorf("%w: step %v", ErrBadAxis, step)
	}
	if !(end > start) {
		return Axis{}, fmt.Errorf("%w: range [%v, %v)", ErrBadAxis, start, end)
	}
	// The epsilon keeps (end-start)/step from rounding up one extra sample.
	n := int(math.Ceil((end-start)/step - 1e-9))
	return Axis{Start: start, Step: step, Count: n}, nil
}

// Value returns the coordinate of sample i.
func (a Axis) Value(i int) float64 {
	return a.Start + float64(i)*a.Step
}

// Values returns all sample coordinates.
func (a Axis) Values() []float64 {
	out := make([]float64, a.Count)
	for i := range out {
		out[i] = a.Value(i)
	}
	return out
}

// Nearest returns the sample closest to v, or false when v is more than half
// a step outside the axis.
func (a Axis) Nearest(v float64) (int, bool) {
	i := int(math.Round((v - a.Start) / a.Step))
	if i < 0 || i >= a.Count {
		return 0, false
	}
	return i, true
}

// Grid is a dense surface stored row-major by latitude:
// Values[latIndex*Lon.Count+lonIndex].
type Grid struct {
	Lon    Axis
	Lat    Axis
	Values []float64
}

// New returns a grid over the axes with every cell Unknown.
func New(lon, lat Axis) *Grid {
	values := make([]float64, lon.Count*lat.Count)
	for i := range values {
		values[i] = Unknown
	}
	return &Grid{Lon: lon, Lat: lat, Values: values}
}

// At returns the value at (lonIndex, latIndex).
func (g *Grid) At(lonIndex, latIndex int) float64 {
	return g.Values[latIndex*g.Lon.Count+lonIndex]
}

// Set stores v at (lonIndex, latIndex).
func (g *Grid) Set(lonIndex, latIndex int, v float64) {
	g.Values[latIndex*g.Lon.Count+lonIndex] = v
}

// Rows returns the backing slice for latitude rows [begin, end).
func (g *Grid) Rows(begin, end int) []float64 {
	return g.Values[begin*g.Lon.Count : end*g.Lon.Count]
}

// ValueAt returns the value of the cell nearest to (lat, lon).
func (g *Grid) ValueAt(lat, lon float64) (float64, bool) {
	i, ok := g.Lon.Nearest(lon)
	if !ok {
		return 0, false
	}
	j, ok := g.Lat.Nearest(lat)
	if !ok {
		return 0, false
	}
	return g.At(i, j), true
}

// SameShape reports whether o samples the same lon/lat axes.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Lon == o.Lon && g.Lat == o.Lat && len(g.Values) == len(o.Values)
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	values := make([]float64, len(g.Values))
	copy(values, g.Values)
	return &Grid{Lon: g.Lon, Lat: g.Lat, Values: values}
}

// Stats summarises the known cells of a grid.
type Stats struct {
	Cells   int     `json:"cells"`
	Unknown int     `json:"unknown"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
}

// Stats computes min/max/mean over known cells.
func (g *Grid) Stats() Stats {
	known := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if !IsUnknown(v) {
			known = append(known, v)
		}
	}

	s := Stats{Cells: len(g.Values), Unknown: len(g.Values) - len(known)}
	if len(known) == 0 {
		return s
	}
	s.Min = floats.Min(known)
	s.Max = floats.Max(known)
	s.Mean = floats.Sum(known) / float64(len(known))
	return s
}
