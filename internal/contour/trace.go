package contour

import (
	"fmt"
	"math"

	"github.com/fogleman/contourmap"

	"github.com/i474232898/travel-time-contours/internal/grid"
)

// Tracer turns a grid into raw isolines, one collection per level.
type Tracer interface {
	Trace(g *grid.Grid, levels []float64) ([][]Polyline, error)
}

// MarchingSquares is a Tracer over the grid's lon/lat lattice backed by
// contourmap.
type MarchingSquares struct {
	// Cap replaces unknown cells during tracing. Zero means twice the top level.
	Cap float64
}

// Trace implements Tracer. Closed rings repeat their first vertex at the end.
func (m MarchingSquares) Trace(g *grid.Grid, levels []float64) ([][]Polyline, error) {
	if g.Lon.Count < 2 || g.Lat.Count < 2 {
		return nil, fmt.Errorf("%w: grid %dx%d is too small to trace", grid.ErrEmptyInput, g.Lon.Count, g.Lat.Count)
	}

	capValue := m.Cap
	if capValue == 0 {
		for _, l := range levels {
			capValue = math.Max(capValue, 2*l)
		}
		capValue++
	}

	// contourmap indexes data[y*w+x], the same row-major layout as the grid.
	data := make([]float64, len(g.Values))
	for i, v := range g.Values {
		if grid.IsUnknown(v) {
			v = capValue
		}
		data[i] = v
	}
	cm := contourmap.FromFloat64s(g.Lon.Count, g.Lat.Count, data)

	out := make([][]Polyline, len(levels))
	for i, z := range levels {
		for _, c := range cm.Contours(z) {
			if line := toPolyline(g, c); len(line) >= 2 {
				out[i] = append(out[i], line)
			}
		}
	}
	return out, nil
}

// toPolyline maps lattice coordinates to lon/lat. A line that ends away from
// the grid border is a ring and gets closed explicitly.
func toPolyline(g *grid.Grid, c contourmap.Contour) Polyline {
	line := make(Polyline, 0, len(c)+1)
	for _, p := range c {
		line = append(line, Point{
			X: g.Lon.Start + p.X*g.Lon.Step,
			Y: g.Lat.Start + p.Y*g.Lat.Step,
		})
	}
	if len(c) > 2 && !onBorder(g, c[0]) && !onBorder(g, c[len(c)-1]) && line[0] != line[len(line)-1] {
		line = append(line, line[0])
	}
	return line
}

func onBorder(g *grid.Grid, p contourmap.Point) bool {
	const eps = 1e-9
	w, h := float64(g.Lon.Count-1), float64(g.Lat.Count-1)
	return p.X <= eps || p.Y <= eps || p.X >= w-eps || p.Y >= h-eps
}
