package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/travel-time-contours/internal/contour"
	"github.com/i474232898/travel-time-contours/internal/grid"
	"github.com/i474232898/travel-time-contours/internal/store"
	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	stations, err := traveltime.NewStationSet([]traveltime.Station{
		{Code: "UT", Name: "Utrecht Centraal", Lat: 52.0894, Lon: 5.1101},
	})
	if err != nil {
		t.Fatal(err)
	}

	memStore := store.NewMemoryStore(0)
	svc := traveltime.NewService(traveltime.Options{
		Stations: stations,
		Store:    memStore,
		Levels:   []float64{15},
	})

	lon, err := grid.NewAxis(5.0, 5.2, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	lat, err := grid.NewAxis(52.0, 52.2, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	g := grid.New(lon, lat)
	for i := range g.Values {
		g.Values[i] = 30
	}
	g.Set(2, 2, 0)
	g.Set(0, 0, grid.Unknown)

	surface, err := svc.BuildSurface(grid.Header{Departure: "UT", RunID: uuid.New()}, g)
	if err != nil {
		t.Fatal(err)
	}
	memStore.SaveSurface(surface)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, svc, 2)
	return app
}

func get(t *testing.T, app *fiber.App, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestContoursEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, body := get(t, app, "/api/v1/contours/ut")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}
	doc, err := contour.Decode(strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.NumPaths() == 0 || doc.Contours[0].Paths[0].Label != "15 min" {
		t.Fatalf("unexpected document: %s", body)
	}

	resp, body = get(t, app, "/api/v1/contours/ASD")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
	var e struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil || !e.Error || e.Message == "" {
		t.Fatalf("unexpected error body: %s", body)
	}
}

func TestGeoJSONEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, body := get(t, app, "/api/v1/contours/UT/geojson")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "application/geo+json" {
		t.Fatalf("content type = %q", ct)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) == 0 {
		t.Fatalf("unexpected geojson: %s", body)
	}
}

func TestTravelTimeQueryValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing lat", "/api/v1/traveltime?departure=UT&lon=5.1", http.StatusBadRequest},
		{"latitude out of range", "/api/v1/traveltime?departure=UT&lat=95&lon=5.1", http.StatusBadRequest},
		{"not a number", "/api/v1/traveltime?departure=UT&lat=north&lon=5.1", http.StatusBadRequest},
		{"unknown departure", "/api/v1/traveltime?departure=ASD&lat=52.1&lon=5.1", http.StatusNotFound},
		{"outside grid", "/api/v1/traveltime?departure=UT&lat=40&lon=5.1", http.StatusNotFound},
		{"inside grid", "/api/v1/traveltime?departure=UT&lat=52.1&lon=5.1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, app, tt.target)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, resp.StatusCode, body)
			}
		})
	}
}

func TestTravelTimeReachability(t *testing.T) {
	app := newTestApp(t)

	var out struct {
		Reachable bool     `json:"reachable"`
		Minutes   *float64 `json:"minutes"`
		Nearest   struct {
			Code string `json:"code"`
		} `json:"nearestStation"`
	}

	_, body := get(t, app, "/api/v1/traveltime?departure=UT&lat=52.1&lon=5.1")
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Reachable || out.Minutes == nil || *out.Minutes != 0 || out.Nearest.Code != "UT" {
		t.Fatalf("unexpected response: %s", body)
	}

	out.Minutes = nil
	_, body = get(t, app, "/api/v1/traveltime?departure=UT&lat=52.0&lon=5.0")
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Reachable || out.Minutes != nil {
		t.Fatalf("expected unknown cell to be unreachable: %s", body)
	}
}

func TestStationsAndDepartures(t *testing.T) {
	app := newTestApp(t)

	_, body := get(t, app, "/api/v1/stations")
	var stations struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &stations); err != nil || stations.Count != 1 {
		t.Fatalf("unexpected stations: %s", body)
	}

	_, body = get(t, app, "/api/v1/departures")
	var deps struct {
		Departures []string `json:"departures"`
	}
	if err := json.Unmarshal(body, &deps); err != nil || len(deps.Departures) != 1 || deps.Departures[0] != "UT" {
		t.Fatalf("unexpected departures: %s", body)
	}
}
