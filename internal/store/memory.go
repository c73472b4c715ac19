package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

var (
	// ErrNotFound is returned when no surface is available for a departure.
	ErrNotFound = errors.New("no surface for departure")
)

// MemoryStore is a concurrency-safe in-memory store of the latest surface
// per departure.
type MemoryStore struct {
	mu sync.RWMutex

	// key: canonical departure key
	data map[string]traveltime.Surface

	// maxAge is an optional retention limit; surfaces older than this are
	// treated as missing.
	maxAge time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a new MemoryStore. If maxAge is <= 0, surfaces
// never expire.
func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]traveltime.Surface),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SaveSurface replaces the surface for its departure and drops expired ones.
func (s *MemoryStore) SaveSurface(surface traveltime.Surface) {
	key := traveltime.Key(surface.Departure)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = surface

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		for k, v := range s.data {
			if v.ComputedAt.Before(cutoff) {
				delete(s.data, k)
			}
		}
	}
}

// GetLatest returns the surface for a departure.
func (s *MemoryStore) GetLatest(departure string) (traveltime.Surface, error) {
	key := traveltime.Key(departure)

	s.mu.RLock()
	defer s.mu.RUnlock()

	surface, ok := s.data[key]
	if !ok || s.expired(surface) {
		return traveltime.Surface{}, ErrNotFound
	}
	return surface, nil
}

// Departures returns the departures with a live surface, sorted.
func (s *MemoryStore) Departures() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.data))
	for _, v := range s.data {
		if !s.expired(v) {
			out = append(out, v.Departure)
		}
	}
	sort.Strings(out)
	return out
}

func (s *MemoryStore) expired(surface traveltime.Surface) bool {
	return s.maxAge > 0 && surface.ComputedAt.Before(s.now().Add(-s.maxAge))
}
