package grid

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
)

func mustAxis(t *testing.T, start, end, step float64) Axis {
	t.Helper()
	a, err := NewAxis(start, end, step)
	if err != nil {
		t.Fatalf("NewAxis(%v, %v, %v): %v", start, end, step, err)
	}
	return a
}

func randomGrid(rnd *rand.Rand, lon, lat Axis, unknownRate float64) *Grid {
	g := New(lon, lat)
	for i := range g.Values {
		if rnd.Float64() < unknownRate {
			continue
		}
		g.Values[i] = rnd.Float64() * 180
	}
	return g
}

func TestNewAxis(t *testing.T) {
	tests := []struct {
		name             string
		start, end, step float64
		wantCount        int
		wantErr          bool
	}{
		{name: "exact", start: 0, end: 1, step: 0.25, wantCount: 4},
		{name: "partial last step", start: 0, end: 1, step: 0.3, wantCount: 4},
		{name: "default lon range", start: 3.0, end: 9.5, step: 0.005, wantCount: 1300},
		{name: "default lat range", start: 50.5, end: 53.75, step: 0.0025, wantCount: 1300},
		{name: "zero step", start: 0, end: 1, step: 0, wantErr: true},
		{name: "negative step", start: 0, end: 1, step: -0.1, wantErr: true},
		{name: "empty range", start: 1, end: 1, step: 0.1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAxis(tt.start, tt.end, tt.step)
			if tt.wantErr {
				if !errors.Is(err, ErrBadAxis) {
					t.Fatalf("expected ErrBadAxis, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Count != tt.wantCount {
				t.Fatalf("count = %d, want %d", a.Count, tt.wantCount)
			}
		})
	}
}

func TestValueAt(t *testing.T) {
	g := New(mustAxis(t, 4.0, 5.0, 0.5), mustAxis(t, 52.0, 53.0, 0.5))
	g.Set(1, 0, 42)

	v, ok := g.ValueAt(52.1, 4.4)
	if !ok || v != 42 {
		t.Fatalf("ValueAt = %v, %v; want 42, true", v, ok)
	}
	if _, ok := g.ValueAt(60, 4.4); ok {
		t.Fatal("expected point outside grid to be rejected")
	}
}

func TestStats(t *testing.T) {
	g := New(mustAxis(t, 0, 2, 1), mustAxis(t, 0, 2, 1))
	g.Values = []float64{10, 20, Unknown, 30}

	s := g.Stats()
	if s.Cells != 4 || s.Unknown != 1 || s.Min != 10 || s.Max != 30 || s.Mean != 20 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestMergeErrors(t *testing.T) {
	if _, err := Merge(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	a := New(mustAxis(t, 0, 3, 1), mustAxis(t, 0, 2, 1))
	b := New(mustAxis(t, 0, 2, 1), mustAxis(t, 0, 2, 1))
	if _, err := Merge([]*Grid{a, b}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	// Same counts but shifted origin still differ.
	c := New(Axis{Start: 1, Step: 1, Count: 3}, a.Lat)
	if _, err := Merge([]*Grid{a, c}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for shifted axis, got %v", err)
	}
}

func TestMergeUnknownPolicy(t *testing.T) {
	lon := mustAxis(t, 0, 3, 1)
	lat := mustAxis(t, 0, 1, 1)

	a := New(lon, lat)
	b := New(lon, lat)
	a.Values = []float64{10, Unknown, Unknown}
	b.Values = []float64{20, 40, math.MaxFloat64}

	got, err := Merge([]*Grid{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Values[0] != 15 {
		t.Errorf("cell 0 = %v, want 15", got.Values[0])
	}
	if got.Values[1] != 40 {
		t.Errorf("cell 1 = %v, want 40 (unknown contributor excluded)", got.Values[1])
	}
	if !IsUnknown(got.Values[2]) {
		t.Errorf("cell 2 = %v, want unknown", got.Values[2])
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	rnd := rand.New(rand.NewSource(127))
	lon := mustAxis(t, 0, 20, 1)
	lat := mustAxis(t, 0, 10, 1)

	grids := []*Grid{
		randomGrid(rnd, lon, lat, 0.2),
		randomGrid(rnd, lon, lat, 0.2),
		randomGrid(rnd, lon, lat, 0.2),
		randomGrid(rnd, lon, lat, 0.2),
	}

	ab, err := Merge(grids[:2])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := Merge([]*Grid{grids[1], grids[0]})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSameValues(t, ab, ba)

	all, err := Merge(grids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shuffled := []*Grid{grids[2], grids[0], grids[3], grids[1]}
	all2, err := Merge(shuffled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSameValues(t, all, all2)
}

func assertSameValues(t *testing.T, a, b *Grid) {
	t.Helper()
	for i := range a.Values {
		if math.Float64bits(a.Values[i]) != math.Float64bits(b.Values[i]) {
			t.Fatalf("cell %d differs: %v vs %v", i, a.Values[i], b.Values[i])
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	g := randomGrid(rnd, mustAxis(t, 3.0, 3.2, 0.005), mustAxis(t, 50.5, 50.6, 0.0025), 0.1)
	h := Header{
		Departure: "UT",
		RunID:     uuid.New(),
		Created:   time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}

	writers := map[string]func(*bytes.Buffer) error{
		"plain": func(b *bytes.Buffer) error { return Write(b, g, h) },
		"zstd":  func(b *bytes.Buffer) error { return WriteCompressed(b, g, h) },
	}

	for name, write := range writers {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := write(&buf); err != nil {
				t.Fatalf("write: %v", err)
			}

			got, gotHeader, err := Read(&buf)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if gotHeader.Departure != h.Departure || gotHeader.RunID != h.RunID || !gotHeader.Created.Equal(h.Created) {
				t.Fatalf("header = %+v, want %+v", gotHeader, h)
			}
			if !got.SameShape(g) {
				t.Fatalf("shape = %+v/%+v, want %+v/%+v", got.Lon, got.Lat, g.Lon, g.Lat)
			}
			assertSameValues(t, got, g)
		})
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, _, err := Read(bytes.NewReader([]byte("definitely not a grid"))); !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}
