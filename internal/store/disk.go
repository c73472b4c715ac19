package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/i474232898/travel-time-contours/internal/common"
	"github.com/i474232898/travel-time-contours/internal/grid"
	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

const (
	gridPrefix     = "contour_data_"
	gridSuffix     = ".grid"
	gridZstdSuffix = ".grid.zst"
)

// GridDir persists grids as files in a directory.
type GridDir struct {
	dir string
}

// NewGridDir creates a GridDir rooted at dir.
func NewGridDir(dir string) *GridDir {
	return &GridDir{dir: dir}
}

// Path returns the file a departure's grid is saved to.
func (d *GridDir) Path(departure string) string {
	return filepath.Join(d.dir, gridPrefix+strings.ToUpper(departure)+gridZstdSuffix)
}

// Exists reports whether a grid for departure has been saved.
func (d *GridDir) Exists(departure string) bool {
	_, err := os.Stat(d.Path(departure))
	return err == nil
}

// Save writes g compressed, replacing any earlier grid for the departure.
func (d *GridDir) Save(g *grid.Grid, h grid.Header) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating grid directory: %w", err)
	}

	path := d.Path(h.Departure)
	tmp, err := os.CreateTemp(d.dir, ".grid-*")
	if err != nil {
		return "", fmt.Errorf("creating grid file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := grid.WriteCompressed(tmp, g, h); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing grid %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing grid %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing grid %s: %w", path, err)
	}
	return path, nil
}

// Load reads the grid saved for departure.
func (d *GridDir) Load(departure string) (traveltime.StoredGrid, error) {
	sg, err := readGrid(d.Path(departure))
	if errors.Is(err, os.ErrNotExist) {
		return traveltime.StoredGrid{}, fmt.Errorf("%w: %s", ErrNotFound, departure)
	}
	return sg, err
}

// LoadAll reads every grid file in the directory in file-name order. Both
// plain and compressed files are accepted.
func (d *GridDir) LoadAll() ([]traveltime.StoredGrid, error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", d.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !common.HasAnySuffix(e.Name(), gridSuffix, gridZstdSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]traveltime.StoredGrid, 0, len(names))
	for _, name := range names {
		sg, err := readGrid(filepath.Join(d.dir, name))
		if err != nil {
			return nil, err
		}
		if sg.Header.Departure == "" {
			sg.Header.Departure = strings.TrimPrefix(common.TrimAnySuffix(name, gridZstdSuffix, gridSuffix), gridPrefix)
		}
		out = append(out, sg)
	}
	log.Printf("DEBUG: loaded %d grids from %s", len(out), d.dir)
	return out, nil
}

func readGrid(path string) (traveltime.StoredGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return traveltime.StoredGrid{}, err
	}
	defer f.Close()

	g, h, err := grid.Read(f)
	if err != nil {
		return traveltime.StoredGrid{}, fmt.Errorf("reading grid %s: %w", path, err)
	}
	return traveltime.StoredGrid{Header: h, Grid: g}, nil
}
