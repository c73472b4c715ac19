package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/travel-time-contours/internal/api/http"
	"github.com/i474232898/travel-time-contours/internal/config"
	"github.com/i474232898/travel-time-contours/internal/contour"
	"github.com/i474232898/travel-time-contours/internal/scheduler"
	"github.com/i474232898/travel-time-contours/internal/store"
	"github.com/i474232898/travel-time-contours/internal/traveltime"
	"github.com/i474232898/travel-time-contours/internal/traveltime/sources"
)

func main() {
	mode := flag.String("mode", "serve", "serve, compute or merge")
	departure := flag.String("departure", "", "departure station code or name (compute mode)")
	overwrite := flag.Bool("overwrite", false, "replace existing grids and output files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *overwrite {
		cfg.Overwrite = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "compute":
		err = runCompute(ctx, cfg, *departure)
	case "merge":
		err = runMerge(cfg)
	case "serve":
		err = runServe(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

// newService wires the service. Stations are optional so serve mode can
// start without a catalog.
func newService(ctx context.Context, cfg *config.AppConfig, requireStations bool) (*traveltime.Service, *store.GridDir, error) {
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var geocoder sources.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geocoder = sources.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}
	stations, err := sources.LoadCatalog(ctx, cfg.StationCatalog, sources.CatalogOptions{
		Geocoder: geocoder,
		Country:  cfg.GeocoderCountry,
	})
	if err != nil {
		if requireStations {
			return nil, nil, err
		}
		log.Printf("INFO: no station catalog loaded: %v", err)
	}

	var source traveltime.TableSource
	switch cfg.TableSource {
	case config.SourceHTTP:
		source = sources.NewHTTPSource(cfg.TableURL, httpClient)
	default:
		source = sources.NewFileSource(cfg.TableDir)
	}

	simplifier := cfg.Region.Simplifier()
	if err := simplifier.Validate(); err != nil {
		return nil, nil, err
	}
	interp, err := traveltime.NewInterpolator(cfg.Region.Interpolation())
	if err != nil {
		return nil, nil, err
	}

	grids := store.NewGridDir(cfg.DataDir)
	svc := traveltime.NewService(traveltime.Options{
		Stations:     stations,
		Source:       source,
		Interpolator: interp,
		Tracer:       contour.MarchingSquares{},
		Encoder:      contour.Encoder{Simplifier: simplifier},
		Levels:       cfg.Region.ContourLevels(),
		Store:        store.NewMemoryStore(cfg.SurfaceMaxAge),
		Grids:        grids,
	})
	return svc, grids, nil
}

func runCompute(ctx context.Context, cfg *config.AppConfig, departure string) error {
	if departure == "" {
		return errors.New("compute mode requires -departure")
	}

	svc, grids, err := newService(ctx, cfg, true)
	if err != nil {
		return err
	}

	// Grids and outputs are keyed by the catalog code, not the flag value.
	st, err := svc.Departure(departure)
	if err != nil {
		return err
	}
	if err := checkTargets(cfg, grids, st.Code); err != nil {
		return err
	}

	start := time.Now()
	surface, err := svc.ComputeDeparture(ctx, st.Code)
	if err != nil {
		return err
	}
	if err := writeOutputs(cfg, surface.Departure, surface); err != nil {
		return err
	}
	log.Printf("INFO: computed %s in %s", surface.Departure, time.Since(start))
	return nil
}

func runMerge(cfg *config.AppConfig) error {
	svc, grids, err := newService(context.Background(), cfg, false)
	if err != nil {
		return err
	}

	if err := checkTargets(cfg, nil, traveltime.MergedDeparture); err != nil {
		return err
	}

	stored, err := grids.LoadAll()
	if err != nil {
		return err
	}
	for _, sg := range stored {
		log.Printf("INFO: merging %s", sg.Header.Departure)
	}

	surface, err := svc.Merge(gridsOf(stored))
	if err != nil {
		return err
	}
	return writeOutputs(cfg, traveltime.MergedDeparture, surface)
}

func runServe(ctx context.Context, cfg *config.AppConfig) error {
	svc, _, err := newService(ctx, cfg, false)
	if err != nil {
		return err
	}

	sched := scheduler.New(cfg.RefreshInterval, svc)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "travel-time-contours",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"service":    "travel-time-contours",
			"departures": len(svc.Departures()),
		})
	})

	httpapi.RegisterRoutes(app, svc, cfg.Region.StrokeWidth)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
