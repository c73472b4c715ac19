package contour

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
)

// ErrLevelCountMismatch is returned when per-level inputs disagree in length.
var ErrLevelCountMismatch = errors.New("contour level count mismatch")

// Path is one encoded polyline. Fields are declared in key order so the
// JSON matches a sorted-keys dump.
type Path struct {
	Label     string    `json:"label"`
	LineColor Color     `json:"linecolor"`
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
}

// Collection groups the paths of one contour level.
type Collection struct {
	Level float64 `json:"level"`
	Paths []Path  `json:"paths"`
}

// Document is the exported set of isochrones.
type Document struct {
	Contours []Collection `json:"contours"`
}

// Stats reports how much the simplifier compressed the input.
type Stats struct {
	Points         int `json:"points"`
	OriginalPoints int `json:"originalPoints"`
}

// Compression is the fraction of vertices removed.
func (s Stats) Compression() float64 {
	if s.OriginalPoints == 0 {
		return 0
	}
	return 1 - float64(s.Points)/float64(s.OriginalPoints)
}

// Encoder simplifies traced polylines and packages them per level.
type Encoder struct {
	Simplifier Simplifier
	// Unit is appended to level labels; "min" when empty.
	Unit string
}

// Encode builds a Document with one Path per input polyline. labels and
// colors may be nil, in which case they are derived from levels.
func (e Encoder) Encode(levels []float64, lines [][]Polyline, labels []string, colors []Color) (*Document, Stats, error) {
	if len(levels) != len(lines) {
		return nil, Stats{}, fmt.Errorf("%w: %d levels, %d polyline collections", ErrLevelCountMismatch, len(levels), len(lines))
	}
	if labels != nil && len(labels) != len(levels) {
		return nil, Stats{}, fmt.Errorf("%w: %d levels, %d labels", ErrLevelCountMismatch, len(levels), len(labels))
	}
	if colors != nil && len(colors) != len(levels) {
		return nil, Stats{}, fmt.Errorf("%w: %d levels, %d colors", ErrLevelCountMismatch, len(levels), len(colors))
	}

	if labels == nil {
		labels = e.Labels(levels)
	}
	if colors == nil {
		colors = LevelColors(levels)
	}

	doc := &Document{Contours: []Collection{}}
	var stats Stats

	for i, level := range levels {
		var paths []Path
		for _, line := range lines[i] {
			simplified := e.Simplifier.Apply(line)
			stats.OriginalPoints += len(line)
			if len(simplified) < 2 {
				continue
			}
			stats.Points += len(simplified)

			p := Path{
				Label:     labels[i],
				LineColor: colors[i],
				X:         make([]float64, len(simplified)),
				Y:         make([]float64, len(simplified)),
			}
			for j, pt := range simplified {
				p.X[j] = pt.X
				p.Y[j] = pt.Y
			}
			paths = append(paths, p)
		}

		if len(paths) > 0 {
			doc.Contours = append(doc.Contours, Collection{Level: level, Paths: paths})
		}
	}

	log.Printf("INFO: total points: %d, compression: %d%%", stats.Points, int(stats.Compression()*100))
	return doc, stats, nil
}

// Labels returns "<minutes> <unit>" for each level.
func (e Encoder) Labels(levels []float64) []string {
	unit := e.Unit
	if unit == "" {
		unit = "min"
	}
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = fmt.Sprintf("%d %s", int(l), unit)
	}
	return out
}

// Write encodes the document as JSON.
func (d *Document) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(d)
}

// Decode reads a document written by Write.
func Decode(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding contour document: %w", err)
	}
	for _, c := range d.Contours {
		for _, p := range c.Paths {
			if len(p.X) != len(p.Y) {
				return nil, fmt.Errorf("decoding contour document: path %q has %d x and %d y values", p.Label, len(p.X), len(p.Y))
			}
		}
	}
	return &d, nil
}

// NumPaths returns the total number of paths over all levels.
func (d *Document) NumPaths() int {
	n := 0
	for _, c := range d.Contours {
		n += len(c.Paths)
	}
	return n
}
