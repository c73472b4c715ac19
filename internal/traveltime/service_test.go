package traveltime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/i474232898/travel-time-contours/internal/grid"
)

type fakeSource struct {
	table Table
	err   error
}

func (f fakeSource) Name() string { return "fake" }

func (f fakeSource) Fetch(ctx context.Context, departure string) (Table, error) {
	return f.table, f.err
}

var errMissing = errors.New("missing")

type mapStore struct {
	mu   sync.Mutex
	data map[string]Surface
}

func newMapStore() *mapStore { return &mapStore{data: map[string]Surface{}} }

func (m *mapStore) SaveSurface(s Surface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[Key(s.Departure)] = s
}

func (m *mapStore) GetLatest(departure string) (Surface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[Key(departure)]
	if !ok {
		return Surface{}, errMissing
	}
	return s, nil
}

func (m *mapStore) Departures() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.data {
		out = append(out, s.Departure)
	}
	sort.Strings(out)
	return out
}

type memRepo struct {
	grids []StoredGrid
	loads int
}

func (r *memRepo) Save(g *grid.Grid, h grid.Header) (string, error) {
	r.grids = append(r.grids, StoredGrid{Header: h, Grid: g})
	return "mem://" + h.Departure, nil
}

func (r *memRepo) Load(departure string) (StoredGrid, error) {
	for _, sg := range r.grids {
		if sg.Header.Departure == departure {
			return sg, nil
		}
	}
	return StoredGrid{}, errMissing
}

func (r *memRepo) LoadAll() ([]StoredGrid, error) {
	r.loads++
	return r.grids, nil
}

func newTestService(t *testing.T, src TableSource) (*Service, *mapStore, *memRepo) {
	t.Helper()
	stations, err := NewStationSet([]Station{
		{Code: "A", Name: "Alpha", Lat: 52.05, Lon: 4.05},
		{Code: "B", Name: "Bravo", Lat: 52.15, Lon: 4.15},
		{Code: "C", Name: "Charlie", Lat: 52.1, Lon: 4.02},
	})
	if err != nil {
		t.Fatal(err)
	}
	ip, err := NewInterpolator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	st := newMapStore()
	repo := &memRepo{}
	svc := NewService(Options{
		Stations:     stations,
		Source:       src,
		Interpolator: ip,
		Levels:       []float64{5, 15, 30},
		Store:        st,
		Grids:        repo,
	})
	return svc, st, repo
}

func TestComputeDeparture(t *testing.T) {
	src := fakeSource{table: Table{Stations: []TableEntry{
		{Name: "Bravo", TravelTimeMin: minutes(20)},
		{Name: "Charlie", TravelTimePlanned: "0:12"},
	}}}
	svc, st, repo := newTestService(t, src)

	surface, err := svc.ComputeDeparture(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surface.Departure != "A" {
		t.Fatalf("departure = %q, want station code", surface.Departure)
	}
	if len(repo.grids) != 1 || repo.grids[0].Header.RunID != surface.RunID {
		t.Fatal("expected the grid to be persisted with the surface's run id")
	}
	if surface.Document == nil || surface.Document.NumPaths() == 0 {
		t.Fatal("expected contours")
	}
	if _, err := st.GetLatest("A"); err != nil {
		t.Fatalf("surface not stored: %v", err)
	}

	v, ok, err := svc.TravelTime("Alpha", 52.05, 4.05)
	if err != nil || !ok {
		t.Fatalf("TravelTime = %v, %v, %v", v, ok, err)
	}
	if v < 0 || v > 1 {
		t.Fatalf("travel time at the departure = %v, want about 0", v)
	}
	if _, _, err := svc.TravelTime("A", 10, 10); !errors.Is(err, ErrOutsideGrid) {
		t.Fatalf("expected ErrOutsideGrid, got %v", err)
	}
}

func TestComputeDepartureErrors(t *testing.T) {
	svc, _, _ := newTestService(t, fakeSource{err: errors.New("offline")})
	if _, err := svc.ComputeDeparture(context.Background(), "Zulu"); !errors.Is(err, ErrUnknownStation) {
		t.Fatalf("expected ErrUnknownStation, got %v", err)
	}
	if _, err := svc.ComputeDeparture(context.Background(), "A"); err == nil {
		t.Fatal("expected source error")
	}

	bare := NewService(Options{Store: newMapStore()})
	if _, err := bare.ComputeDeparture(context.Background(), "A"); !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected errNotConfigured, got %v", err)
	}
	if _, err := bare.Departure("A"); !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected errNotConfigured without a catalog, got %v", err)
	}
}

func TestDepartureResolvesNames(t *testing.T) {
	svc, _, _ := newTestService(t, fakeSource{})
	st, err := svc.Departure(" alpha ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Code != "A" {
		t.Fatalf("code = %q, want A", st.Code)
	}
	if _, err := svc.Departure("Zulu"); !errors.Is(err, ErrUnknownStation) {
		t.Fatalf("expected ErrUnknownStation, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	src := fakeSource{table: Table{Stations: []TableEntry{{Name: "Bravo", TravelTimeMin: minutes(20)}}}}
	svc, st, repo := newTestService(t, src)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("empty refresh: %v", err)
	}
	if _, err := st.GetLatest(MergedDeparture); err == nil {
		t.Fatal("no merged surface expected without grids")
	}

	for _, dep := range []string{"A", "B"} {
		if _, err := svc.ComputeDeparture(context.Background(), dep); err != nil {
			t.Fatal(err)
		}
	}

	fresh := newMapStore()
	svc.store = fresh
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	deps := fresh.Departures()
	if len(deps) != 3 || deps[0] != "A" || deps[1] != "B" || deps[2] != MergedDeparture {
		t.Fatalf("unexpected departures after refresh: %v", deps)
	}

	merged, _ := fresh.GetLatest(MergedDeparture)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	again, _ := fresh.GetLatest(MergedDeparture)
	if again.RunID != merged.RunID {
		t.Fatal("merged surface recomputed although nothing changed")
	}
	if repo.loads != 3 {
		t.Fatalf("expected 3 loads, got %d", repo.loads)
	}
}

func TestTableEntryMinutes(t *testing.T) {
	tests := []struct {
		entry TableEntry
		want  float64
		ok    bool
	}{
		{TableEntry{TravelTimeMin: minutes(27)}, 27, true},
		{TableEntry{TravelTimePlanned: "1:05"}, 65, true},
		{TableEntry{TravelTimeMin: minutes(12), TravelTimePlanned: "1:05"}, 12, true},
		{TableEntry{TravelTimePlanned: "soon"}, 0, false},
		{TableEntry{TravelTimePlanned: "0:75"}, 0, false},
		{TableEntry{TravelTimeMin: minutes(-3)}, 0, false},
		{TableEntry{Name: "Bravo"}, 0, false},
		{TableEntry{TravelTimeMin: minutes(0), TravelTimePlanned: "1:05"}, 0, true},
	}
	for _, tt := range tests {
		got, ok := tt.entry.Minutes()
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("%+v: got %v, %v; want %v, %v", tt.entry, got, ok, tt.want, tt.ok)
		}
	}
}
