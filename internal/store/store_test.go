package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/travel-time-contours/internal/grid"
	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(0)

	if _, err := s.GetLatest("UT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first := traveltime.Surface{Departure: "UT", RunID: uuid.New(), ComputedAt: time.Now()}
	second := traveltime.Surface{Departure: "ut", RunID: uuid.New(), ComputedAt: time.Now()}
	s.SaveSurface(first)
	s.SaveSurface(second)
	s.SaveSurface(traveltime.Surface{Departure: "ASD", ComputedAt: time.Now()})

	got, err := s.GetLatest(" Ut")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RunID != second.RunID {
		t.Fatal("expected the latest surface to replace the earlier one")
	}

	deps := s.Departures()
	if len(deps) != 2 || deps[0] != "ASD" || deps[1] != "ut" {
		t.Fatalf("unexpected departures: %v", deps)
	}
}

func TestMemoryStoreRetention(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	s.SaveSurface(traveltime.Surface{Departure: "UT", ComputedAt: now.Add(-30 * time.Minute)})
	if _, err := s.GetLatest("UT"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(time.Hour)
	if _, err := s.GetLatest("UT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired surface to be hidden, got %v", err)
	}
	if len(s.Departures()) != 0 {
		t.Fatal("expected no live departures")
	}

	s.SaveSurface(traveltime.Surface{Departure: "ASD", ComputedAt: now})
	if _, ok := s.data["ut"]; ok {
		t.Fatal("expected expired surface to be dropped on save")
	}
}

func testGrid(t *testing.T, fill float64) *grid.Grid {
	t.Helper()
	lon, err := grid.NewAxis(4, 5, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	lat, err := grid.NewAxis(52, 53, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	g := grid.New(lon, lat)
	for i := 1; i < len(g.Values); i++ {
		g.Values[i] = fill
	}
	return g
}

func TestGridDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	d := NewGridDir(dir)

	if all, err := d.LoadAll(); err != nil || len(all) != 0 {
		t.Fatalf("missing directory: got %v, %v", all, err)
	}
	if _, err := d.Load("UT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	h := grid.Header{Departure: "UT", RunID: uuid.New(), Created: time.Now().UTC()}
	path, err := d.Save(testGrid(t, 12), h)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "contour_data_UT.grid.zst" {
		t.Fatalf("unexpected path %s", path)
	}
	if !d.Exists("ut") {
		t.Fatal("expected grid to exist")
	}

	if _, err := d.Save(testGrid(t, 30), grid.Header{Departure: "ASD", RunID: uuid.New()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	sg, err := d.Load("UT")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sg.Header.RunID != h.RunID || sg.Grid.Values[1] != 12 || !grid.IsUnknown(sg.Grid.Values[0]) {
		t.Fatalf("unexpected grid: %+v", sg.Header)
	}

	all, err := d.LoadAll()
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 2 || all[0].Header.Departure != "ASD" || all[1].Header.Departure != "UT" {
		t.Fatalf("unexpected grids: %d", len(all))
	}
}

func TestGridDirRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "contour_data_X.grid"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewGridDir(dir).LoadAll(); !errors.Is(err, grid.ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}
