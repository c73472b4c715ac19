package traveltime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/travel-time-contours/internal/contour"
	"github.com/i474232898/travel-time-contours/internal/grid"
)

// MergedDeparture is the store key of the surface averaged over all departures.
const MergedDeparture = "merged"

// Surface is an interpolated grid together with its isochrones.
type Surface struct {
	Departure  string            `json:"departure"`
	RunID      uuid.UUID         `json:"runId"`
	ComputedAt time.Time         `json:"computedAt"`
	Grid       *grid.Grid        `json:"-"`
	Document   *contour.Document `json:"-"`
	Stats      contour.Stats     `json:"stats"`
}

// TableSource abstracts where travel-time tables come from (a directory of
// JSON files, a remote planner).
type TableSource interface {
	Name() string
	Fetch(ctx context.Context, departure string) (Table, error)
}

// Store is the contract the in-memory surface store must satisfy.
type Store interface {
	SaveSurface(s Surface)
	GetLatest(departure string) (Surface, error)
	Departures() []string
}

// StoredGrid is a grid read back from a GridRepository.
type StoredGrid struct {
	Header grid.Header
	Grid   *grid.Grid
}

// GridRepository persists interpolated grids between runs.
type GridRepository interface {
	Save(g *grid.Grid, h grid.Header) (string, error)
	Load(departure string) (StoredGrid, error)
	LoadAll() ([]StoredGrid, error)
}
