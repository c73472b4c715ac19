package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/i474232898/travel-time-contours/internal/config"
	"github.com/i474232898/travel-time-contours/internal/grid"
	"github.com/i474232898/travel-time-contours/internal/store"
	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

func gridsOf(stored []traveltime.StoredGrid) []*grid.Grid {
	out := make([]*grid.Grid, len(stored))
	for i, sg := range stored {
		out[i] = sg.Grid
	}
	return out
}

// outputPaths returns the document and GeoJSON files written for name.
func outputPaths(cfg *config.AppConfig, name string) (string, string) {
	return filepath.Join(cfg.OutputDir, name+".json"), filepath.Join(cfg.OutputDir, name+".geojson")
}

// checkTargets fails when a run for code would replace its grid or an output
// file and overwriting is not allowed. grids may be nil when no grid is saved.
func checkTargets(cfg *config.AppConfig, grids *store.GridDir, code string) error {
	if cfg.Overwrite {
		return nil
	}
	if grids != nil && grids.Exists(code) {
		return fmt.Errorf("grid %s already exists; use -overwrite to replace it", grids.Path(code))
	}
	jsonPath, geoPath := outputPaths(cfg, code)
	for _, p := range []string{jsonPath, geoPath} {
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("output file %s already exists; use -overwrite to replace it", p)
		}
	}
	return nil
}

// writeOutputs exports the surface as <name>.json and <name>.geojson.
func writeOutputs(cfg *config.AppConfig, name string, surface traveltime.Surface) error {
	if err := checkTargets(cfg, nil, name); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	jsonPath, geoPath := outputPaths(cfg, name)
	if err := writeFile(jsonPath, func(f *os.File) error {
		return surface.Document.Write(f)
	}); err != nil {
		return err
	}
	if err := writeFile(geoPath, func(f *os.File) error {
		body, err := surface.Document.FeatureCollection(cfg.Region.StrokeWidth).MarshalJSON()
		if err != nil {
			return err
		}
		_, err = f.Write(body)
		return err
	}); err != nil {
		return err
	}

	log.Printf("INFO: wrote %s and %s (%d paths)", jsonPath, geoPath, surface.Document.NumPaths())
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
