package traveltime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/travel-time-contours/internal/contour"
	"github.com/i474232898/travel-time-contours/internal/grid"
)

var (
	// ErrUnknownStation is returned for a departure that is not in the catalog.
	ErrUnknownStation = errors.New("unknown station")

	// ErrOutsideGrid is returned for a point the surface does not cover.
	ErrOutsideGrid = errors.New("point outside grid")

	errNotConfigured = errors.New("service dependency not configured")
)

// DefaultLevels returns isochrones every 10 minutes up to three hours.
func DefaultLevels() []float64 {
	levels := make([]float64, 0, 18)
	for m := 10; m <= 180; m += 10 {
		levels = append(levels, float64(m))
	}
	return levels
}

// Options wires a Service. Only Store is required; the rest is needed by the
// operations that use it.
type Options struct {
	Stations     *StationSet
	Source       TableSource
	Interpolator *Interpolator
	Tracer       contour.Tracer
	Encoder      contour.Encoder
	Levels       []float64
	Store        Store
	Grids        GridRepository
}

// Service orchestrates interpolation, contouring and persistence of surfaces.
type Service struct {
	stations *StationSet
	source   TableSource
	interp   *Interpolator
	tracer   contour.Tracer
	encoder  contour.Encoder
	levels   []float64
	store    Store
	grids    GridRepository

	// refreshMu serialises Refresh runs from the scheduler and startup.
	refreshMu sync.Mutex
}

// NewService creates a new Service.
func NewService(opts Options) *Service {
	if opts.Tracer == nil {
		opts.Tracer = contour.MarchingSquares{}
	}
	if len(opts.Levels) == 0 {
		opts.Levels = DefaultLevels()
	}
	return &Service{
		stations: opts.Stations,
		source:   opts.Source,
		interp:   opts.Interpolator,
		tracer:   opts.Tracer,
		encoder:  opts.Encoder,
		levels:   opts.Levels,
		store:    opts.Store,
		grids:    opts.Grids,
	}
}

// Levels returns the contour levels in minutes.
func (s *Service) Levels() []float64 {
	out := make([]float64, len(s.levels))
	copy(out, s.levels)
	return out
}

// ComputeDeparture fetches the table for departure, interpolates the full
// surface, persists the grid and stores the contoured result.
func (s *Service) ComputeDeparture(ctx context.Context, departure string) (Surface, error) {
	if s.stations == nil || s.source == nil || s.interp == nil {
		return Surface{}, fmt.Errorf("%w: compute needs stations, a table source and an interpolator", errNotConfigured)
	}

	st, err := s.Departure(departure)
	if err != nil {
		return Surface{}, err
	}

	log.Printf("DEBUG: ComputeDeparture called for %s using source %s", st.Code, s.source.Name())
	table, err := s.source.Fetch(ctx, st.Code)
	if err != nil {
		return Surface{}, fmt.Errorf("fetching travel times from %s: %w", st.Code, err)
	}
	table.Departure = st.Code

	set := s.stations.WithTravelTimes(table)
	log.Printf("INFO: %s: %d of %d stations have a travel time", st.Code, set.KnownCount(), set.Len())

	g, err := s.interp.Interpolate(set)
	if err != nil {
		return Surface{}, fmt.Errorf("interpolating %s: %w", st.Code, err)
	}

	h := grid.Header{Departure: st.Code, RunID: uuid.New(), Created: time.Now().UTC()}
	if s.grids != nil {
		path, err := s.grids.Save(g, h)
		if err != nil {
			return Surface{}, fmt.Errorf("persisting grid for %s: %w", st.Code, err)
		}
		log.Printf("INFO: saved grid for %s to %s", st.Code, path)
	}

	surface, err := s.BuildSurface(h, g)
	if err != nil {
		return Surface{}, err
	}
	if s.store != nil {
		s.store.SaveSurface(surface)
	}
	return surface, nil
}

// BuildSurface traces and encodes the isochrones of g.
func (s *Service) BuildSurface(h grid.Header, g *grid.Grid) (Surface, error) {
	lines, err := s.tracer.Trace(g, s.levels)
	if err != nil {
		return Surface{}, fmt.Errorf("tracing %s: %w", h.Departure, err)
	}
	doc, stats, err := s.encoder.Encode(s.levels, lines, nil, nil)
	if err != nil {
		return Surface{}, fmt.Errorf("encoding %s: %w", h.Departure, err)
	}

	computed := h.Created
	if computed.IsZero() {
		computed = time.Now().UTC()
	}
	return Surface{
		Departure:  h.Departure,
		RunID:      h.RunID,
		ComputedAt: computed,
		Grid:       g,
		Document:   doc,
		Stats:      stats,
	}, nil
}

// Merge averages grids and contours the result as the merged surface.
func (s *Service) Merge(grids []*grid.Grid) (Surface, error) {
	merged, err := grid.Merge(grids)
	if err != nil {
		return Surface{}, fmt.Errorf("merging %d grids: %w", len(grids), err)
	}
	h := grid.Header{Departure: MergedDeparture, RunID: uuid.New(), Created: time.Now().UTC()}
	return s.BuildSurface(h, merged)
}

// Refresh loads every persisted grid, contours those the store has not seen,
// and recomputes the merged surface when anything changed. Travel times are
// never recomputed here.
func (s *Service) Refresh(ctx context.Context) error {
	if s.grids == nil || s.store == nil {
		return fmt.Errorf("%w: refresh needs a grid repository and a store", errNotConfigured)
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	stored, err := s.grids.LoadAll()
	if err != nil {
		return fmt.Errorf("loading persisted grids: %w", err)
	}
	if len(stored) == 0 {
		log.Printf("INFO: no persisted grids; keeping current surfaces")
		return nil
	}

	var (
		grids   = make([]*grid.Grid, 0, len(stored))
		changed bool
	)
	for _, sg := range stored {
		if err := ctx.Err(); err != nil {
			return err
		}
		grids = append(grids, sg.Grid)

		if cur, err := s.store.GetLatest(sg.Header.Departure); err == nil && cur.RunID == sg.Header.RunID {
			continue
		}
		surface, err := s.BuildSurface(sg.Header, sg.Grid)
		if err != nil {
			log.Printf("ERROR: rebuilding surface for %s: %v", sg.Header.Departure, err)
			continue
		}
		s.store.SaveSurface(surface)
		changed = true
	}

	if _, err := s.store.GetLatest(MergedDeparture); err == nil && !changed {
		return nil
	}

	merged, err := s.Merge(grids)
	if err != nil {
		return err
	}
	s.store.SaveSurface(merged)
	log.Printf("INFO: refreshed %d surfaces and the merged surface", len(stored))
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(departure string) (Surface, error) {
	return s.store.GetLatest(s.resolve(departure))
}

// Departures lists the departures with a stored surface.
func (s *Service) Departures() []string {
	return s.store.Departures()
}

// Stations returns the catalog, or nil when none is loaded.
func (s *Service) Stations() []Station {
	if s.stations == nil {
		return nil
	}
	return s.stations.Stations()
}

// TravelTime returns the value of the cell nearest to (lat, lon) on the
// departure's surface. ok is false for unreachable cells.
func (s *Service) TravelTime(departure string, lat, lon float64) (minutes float64, ok bool, err error) {
	surface, err := s.GetLatest(departure)
	if err != nil {
		return 0, false, err
	}
	v, inside := surface.Grid.ValueAt(lat, lon)
	if !inside {
		return 0, false, fmt.Errorf("%w: (%v, %v)", ErrOutsideGrid, lat, lon)
	}
	if grid.IsUnknown(v) {
		return 0, false, nil
	}
	return v, true, nil
}

// NearestStation returns the catalog station closest to (lat, lon).
func (s *Service) NearestStation(lat, lon float64) (Station, float64, bool) {
	if s.stations == nil {
		return Station{}, 0, false
	}
	return s.stations.Nearest(lat, lon)
}

// Departure resolves a station code or name against the catalog.
func (s *Service) Departure(ref string) (Station, error) {
	if s.stations == nil {
		return Station{}, fmt.Errorf("%w: no station catalog", errNotConfigured)
	}
	st, ok := s.stations.Find(ref)
	if !ok {
		return Station{}, fmt.Errorf("%w: %q", ErrUnknownStation, ref)
	}
	return st, nil
}

// resolve maps a station name to its code so lookups accept either.
func (s *Service) resolve(departure string) string {
	if s.stations != nil {
		if st, ok := s.stations.Find(departure); ok {
			return st.Code
		}
	}
	return departure
}
