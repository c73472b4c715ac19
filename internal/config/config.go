package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Table source kinds.
const (
	SourceFile = "file"
	SourceHTTP = "http"
)

type AppConfig struct {
	Port string

	// DataDir holds persisted grids, OutputDir the exported documents.
	DataDir   string
	OutputDir string

	// TableSource selects where travel-time tables are read from.
	TableSource string
	TableDir    string
	TableURL    string

	StationCatalog  string
	GeocoderAPIKey  string
	GeocoderCountry string

	HTTPTimeout time.Duration

	// RefreshInterval controls how often persisted grids are re-read in serve mode.
	RefreshInterval time.Duration

	// SurfaceMaxAge is the in-memory store retention (0 = unlimited).
	SurfaceMaxAge time.Duration

	Overwrite bool

	RegionFile string
	Region     RegionConfig
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.OutputDir = getenvDefault("OUTPUT_DIR", "output")

	cfg.TableSource = getenvDefault("TABLE_SOURCE", SourceFile)
	cfg.TableDir = getenvDefault("TABLE_DIR", "data/traveltimes")
	cfg.TableURL = os.Getenv("TABLE_URL")
	switch cfg.TableSource {
	case SourceFile:
	case SourceHTTP:
		if cfg.TableURL == "" {
			return nil, fmt.Errorf("TABLE_URL is required when TABLE_SOURCE=%s", SourceHTTP)
		}
	default:
		return nil, fmt.Errorf("invalid TABLE_SOURCE %q: want %s or %s", cfg.TableSource, SourceFile, SourceHTTP)
	}

	cfg.StationCatalog = getenvDefault("STATION_CATALOG", "data/stations.csv")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.GeocoderCountry = getenvDefault("GEOCODER_COUNTRY", "NL")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.SurfaceMaxAge, err = getenvDuration("SURFACE_MAX_AGE", "0s"); err != nil {
		return nil, err
	}
	cfg.Overwrite = getenvBool("OVERWRITE", false)

	cfg.RegionFile = getenvDefault("REGION_FILE", "contours.yml")
	region, err := LoadRegion(cfg.RegionFile)
	if err != nil {
		return nil, err
	}
	cfg.Region = region

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
