package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

// ErrBadCatalog is returned for a malformed station catalog.
var ErrBadCatalog = errors.New("invalid station catalog")

// CatalogOptions controls how catalog rows without coordinates are handled.
type CatalogOptions struct {
	// Geocoder, when set, locates rows with empty coordinates.
	Geocoder Geocoder
	// Country is used for rows that have none and as the geocoding region.
	Country string
}

// LoadCatalog reads a station CSV file. See ReadCatalog.
func LoadCatalog(ctx context.Context, path string, opts CatalogOptions) (*traveltime.StationSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening station catalog: %w", err)
	}
	defer f.Close()
	return ReadCatalog(ctx, f, opts)
}

// ReadCatalog parses rows of code,name,lat,lon[,country]. A leading header
// row is skipped, as are rows whose position cannot be determined.
func ReadCatalog(ctx context.Context, r io.Reader, opts CatalogOptions) (*traveltime.StationSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var (
		stations []traveltime.Station
		line     int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCatalog, err)
		}
		line++

		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("%w: row %d has %d fields, want at least 4", ErrBadCatalog, line, len(rec))
		}

		st := traveltime.Station{
			Code:    strings.TrimSpace(rec[0]),
			Name:    strings.TrimSpace(rec[1]),
			Country: opts.Country,
		}
		if len(rec) > 4 && strings.TrimSpace(rec[4]) != "" {
			st.Country = strings.TrimSpace(rec[4])
		}
		if st.Code == "" {
			return nil, fmt.Errorf("%w: row %d has no station code", ErrBadCatalog, line)
		}

		latStr, lonStr := strings.TrimSpace(rec[2]), strings.TrimSpace(rec[3])
		if latStr == "" || lonStr == "" {
			if opts.Geocoder == nil {
				log.Printf("WARN: station %s has no coordinates; skipping", st.Code)
				continue
			}
			lat, lon, err := opts.Geocoder.Locate(ctx, st.Name, st.Country)
			if err != nil {
				log.Printf("WARN: station %s could not be located: %v; skipping", st.Code, err)
				continue
			}
			st.Lat, st.Lon = lat, lon
		} else {
			if st.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
				return nil, fmt.Errorf("%w: row %d latitude: %v", ErrBadCatalog, line, err)
			}
			if st.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
				return nil, fmt.Errorf("%w: row %d longitude: %v", ErrBadCatalog, line, err)
			}
		}

		stations = append(stations, st)
	}

	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no stations", ErrBadCatalog)
	}
	log.Printf("INFO: loaded %d stations", len(stations))
	return traveltime.NewStationSet(stations)
}
