package grid

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Merge averages grids of identical shape cell by cell.
//
// Unknown contributors are left out of a cell's mean; a cell is Unknown only
// when every contributor is. Known values are sorted before summing so the
// result does not depend on the order of grids.
func Merge(grids []*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("%w: no grids to merge", ErrEmptyInput)
	}

	first := grids[0]
	for i, g := range grids[1:] {
		if !first.SameShape(g) {
			return nil, fmt.Errorf("%w: grid %d is %dx%d, want %dx%d",
				ErrDimensionMismatch, i+1, g.Lon.Count, g.Lat.Count, first.Lon.Count, first.Lat.Count)
		}
	}

	out := New(first.Lon, first.Lat)
	buf := make([]float64, 0, len(grids))

	for cell := range out.Values {
		buf = buf[:0]
		for _, g := range grids {
			if v := g.Values[cell]; !IsUnknown(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			continue
		}
		sort.Float64s(buf)
		out.Values[cell] = floats.Sum(buf) / float64(len(buf))
	}

	return out, nil
}
