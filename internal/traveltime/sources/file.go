package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

// FileSource implements traveltime.TableSource over a directory of
// traveltimes_from_<departure>.json files.
type FileSource struct {
	dir string
}

// NewFileSource creates a FileSource reading from dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Name() string {
	return "file"
}

// TablePath returns where the table for departure is expected.
func (s *FileSource) TablePath(departure string) string {
	return filepath.Join(s.dir, "traveltimes_from_"+strings.ToLower(departure)+".json")
}

func (s *FileSource) Fetch(ctx context.Context, departure string) (traveltime.Table, error) {
	if err := ctx.Err(); err != nil {
		return traveltime.Table{}, err
	}

	path := s.TablePath(departure)
	f, err := os.Open(path)
	if err != nil {
		return traveltime.Table{}, fmt.Errorf("opening travel-time table: %w", err)
	}
	defer f.Close()

	var table traveltime.Table
	if err := json.NewDecoder(f).Decode(&table); err != nil {
		return traveltime.Table{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	if table.Departure == "" {
		table.Departure = departure
	}
	return table, nil
}
