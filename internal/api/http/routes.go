package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/travel-time-contours/internal/store"
	"github.com/i474232898/travel-time-contours/internal/traveltime"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. strokeWidth is
// applied to GeoJSON exports.
func RegisterRoutes(app *fiber.App, service *traveltime.Service, strokeWidth float64) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		stations := service.Stations()
		if stations == nil {
			stations = []traveltime.Station{}
		}
		return c.JSON(fiber.Map{
			"count":    len(stations),
			"stations": stations,
		})
	})

	v1.Get("/departures", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"departures": service.Departures(),
			"levels":     service.Levels(),
		})
	})

	v1.Get("/contours/:departure", func(c *fiber.Ctx) error {
		surface, err := latest(service, c.Params("departure"))
		if err != nil {
			return err
		}
		return c.JSON(surface.Document)
	})

	v1.Get("/contours/:departure/geojson", func(c *fiber.Ctx) error {
		surface, err := latest(service, c.Params("departure"))
		if err != nil {
			return err
		}
		body, err := surface.Document.FeatureCollection(strokeWidth).MarshalJSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode geojson")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(body)
	})

	v1.Get("/contours/:departure/stats", func(c *fiber.Ctx) error {
		surface, err := latest(service, c.Params("departure"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"surface":     surface,
			"grid":        surface.Grid.Stats(),
			"compression": surface.Stats.Compression(),
		})
	})

	v1.Get("/traveltime", func(c *fiber.Ctx) error {
		q, err := parsePointQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		minutes, reachable, err := service.TravelTime(q.Departure, q.lat, q.lon)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "no surface for requested departure")
		case errors.Is(err, traveltime.ErrOutsideGrid):
			return fiber.NewError(fiber.StatusNotFound, "point outside the computed region")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to look up travel time")
		}

		resp := fiber.Map{
			"departure": q.Departure,
			"lat":       q.lat,
			"lon":       q.lon,
			"reachable": reachable,
		}
		if reachable {
			resp["minutes"] = minutes
		}
		if st, dist, ok := service.NearestStation(q.lat, q.lon); ok {
			resp["nearestStation"] = fiber.Map{
				"code":           st.Code,
				"name":           st.Name,
				"distanceMeters": dist,
			}
		}
		return c.JSON(resp)
	})
}

func latest(service *traveltime.Service, departure string) (traveltime.Surface, error) {
	surface, err := service.GetLatest(departure)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return surface, fiber.NewError(fiber.StatusNotFound, "no contours for requested departure")
		}
		return surface, fiber.NewError(fiber.StatusInternalServerError, "failed to fetch contours")
	}
	return surface, nil
}

// pointQuery holds query parameters for the travel-time lookup.
type pointQuery struct {
	Departure string `validate:"required"`
	Lat       string `validate:"required,latitude"`
	Lon       string `validate:"required,longitude"`

	lat, lon float64
}

func parsePointQuery(c *fiber.Ctx) (pointQuery, error) {
	q := pointQuery{
		Departure: c.Query("departure"),
		Lat:       c.Query("lat"),
		Lon:       c.Query("lon"),
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}

	var err error
	if q.lat, err = strconv.ParseFloat(q.Lat, 64); err != nil {
		return q, err
	}
	if q.lon, err = strconv.ParseFloat(q.Lon, 64); err != nil {
		return q, err
	}
	return q, nil
}
