// Package contour traces isochrones from travel-time grids, simplifies the
// resulting polylines and encodes them for export.
package contour

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Point is a vertex in lon (X) / lat (Y) degrees.
type Point struct {
	X float64
	Y float64
}

func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Polyline is an ordered sequence of vertices on one contour level.
type Polyline []Point

// Simplification methods.
const (
	MethodAngle          = "angle"
	MethodDouglasPeucker = "douglas-peucker"
)

// Simplify drops interior vertices where the line turns by no more than
// minAngleDeg. The first and last vertices are always kept, and lines of
// three or fewer vertices are returned unchanged.
func Simplify(line Polyline, minAngleDeg float64) Polyline {
	n := len(line)
	if n <= 3 {
		out := make(Polyline, n)
		copy(out, line)
		return out
	}

	out := Polyline{line[0]}
	v1 := line[1].sub(line[0])

	for i := 1; i < n-2; i++ {
		v2 := line[i+1].sub(line[i-1])
		if isZero(v2) {
			// Duplicate vertex.
			continue
		}
		if isZero(v1) {
			v1 = v2
			continue
		}
		if angleDeg(v1, v2) > minAngleDeg {
			out = append(out, line[i])
			v1 = line[i].sub(line[i-1])
		}
	}

	return append(out, line[n-1])
}

func isZero(v Point) bool {
	return v.X == 0 && v.Y == 0
}

// angleDeg is the unsigned angle between a and b in degrees.
func angleDeg(a, b Point) float64 {
	cos := (a.X*b.X + a.Y*b.Y) / (math.Hypot(a.X, a.Y) * math.Hypot(b.X, b.Y))
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// Round rounds every coordinate to digits decimals.
func Round(line Polyline, digits int) Polyline {
	scale := math.Pow(10, float64(digits))
	out := make(Polyline, len(line))
	for i, p := range line {
		out[i] = Point{math.Round(p.X*scale) / scale, math.Round(p.Y*scale) / scale}
	}
	return out
}

// DigitsForStep picks the output precision for a grid step: one digit more
// than the number of digits in 1/step (0.005 -> 4).
func DigitsForStep(step float64) int {
	if !(step > 0) {
		return 5
	}
	return len(strconv.Itoa(int(1.0/step))) + 1
}

// Simplifier bundles a simplification method with output rounding.
type Simplifier struct {
	Method      string
	MinAngleDeg float64
	// Epsilon is the Douglas-Peucker tolerance in degrees.
	Epsilon float64
	// Digits is the number of decimals kept; zero disables rounding.
	Digits int
}

// Validate reports unknown methods.
func (s Simplifier) Validate() error {
	switch s.Method {
	case "", MethodAngle, MethodDouglasPeucker:
		return nil
	default:
		return fmt.Errorf("unknown simplification method %q", s.Method)
	}
}

// Apply simplifies line and rounds the result.
func (s Simplifier) Apply(line Polyline) Polyline {
	var out Polyline
	switch s.Method {
	case MethodDouglasPeucker:
		out = douglasPeucker(line, s.Epsilon)
	default:
		out = Simplify(line, s.MinAngleDeg)
	}
	if s.Digits > 0 {
		out = Round(out, s.Digits)
	}
	return out
}

func douglasPeucker(line Polyline, epsilon float64) Polyline {
	if len(line) <= 3 {
		return Simplify(line, 0)
	}

	ls := make(orb.LineString, len(line))
	for i, p := range line {
		ls[i] = orb.Point{p.X, p.Y}
	}

	simp, ok := simplify.DouglasPeucker(epsilon).Simplify(ls).(orb.LineString)
	if !ok {
		return Simplify(line, 0)
	}

	out := make(Polyline, len(simp))
	for i, p := range simp {
		out[i] = Point{p[0], p[1]}
	}
	return out
}
