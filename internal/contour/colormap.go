package contour

import (
	"fmt"
	"math"
)

// Color is an RGBA colour with components in [0, 1].
type Color [4]float64

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	b := func(v float64) int { return int(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", b(c[0]), b(c[1]), b(c[2]))
}

type colorStop struct{ x, y float64 }

// Segment data of the classic "jet" colormap.
var (
	jetRed   = []colorStop{{0, 0}, {0.35, 0}, {0.66, 1}, {0.89, 1}, {1, 0.5}}
	jetGreen = []colorStop{{0, 0}, {0.125, 0}, {0.375, 1}, {0.64, 1}, {0.91, 0}, {1, 0}}
	jetBlue  = []colorStop{{0, 0.5}, {0.11, 1}, {0.34, 1}, {0.65, 0}, {1, 0}}
)

// Jet maps t in [0, 1] onto the jet colormap.
func Jet(t float64) Color {
	t = math.Max(0, math.Min(1, t))
	return Color{interpolate(jetRed, t), interpolate(jetGreen, t), interpolate(jetBlue, t), 1}
}

func interpolate(stops []colorStop, t float64) float64 {
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].x {
			a, b := stops[i-1], stops[i]
			return a.y + (b.y-a.y)*(t-a.x)/(b.x-a.x)
		}
	}
	return stops[len(stops)-1].y
}

// LevelColors colours levels with jet, normalised over their min and max.
func LevelColors(levels []float64) []Color {
	out := make([]Color, len(levels))
	if len(levels) == 0 {
		return out
	}

	lo, hi := levels[0], levels[0]
	for _, l := range levels[1:] {
		lo = math.Min(lo, l)
		hi = math.Max(hi, l)
	}

	for i, l := range levels {
		t := 0.5
		if hi > lo {
			t = (l - lo) / (hi - lo)
		}
		out[i] = Jet(t)
	}
	return out
}
