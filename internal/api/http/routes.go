package httpapi

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-voice/internal/summary"
	"github.com/i474232898/weather-voice/internal/weather"
)

var validate = validator.New()

// WeatherService is what the weather endpoint needs from the domain.
type WeatherService interface {
	Fetch(ctx context.Context, q weather.Query, units weather.Units) (weather.Model, error)
}

// SummaryService is what the summarize endpoint needs from the domain.
type SummaryService interface {
	Summarize(ctx context.Context, m weather.Model) (summary.Result, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, weatherSvc WeatherService, summarySvc SummaryService) {
	api := app.Group("/api")

	api.Get("/weather", func(c *fiber.Ctx) error {
		var q weatherQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		units, err := weather.ParseUnits(q.Units)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		model, err := weatherSvc.Fetch(c.UserContext(), q.toQuery(), units)
		if err != nil {
			return weatherError(err)
		}

		return c.JSON(model)
	})

	api.Post("/summarize", func(c *fiber.Ctx) error {
		var req summarizeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid or missing weather data provided.")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid or missing weather data provided.")
		}

		res, err := summarySvc.Summarize(c.UserContext(), *req.WeatherData)
		if err != nil {
			return summaryError(err)
		}

		return c.JSON(fiber.Map{"summary": res.Text})
	})
}

// weatherQuery holds query parameters for the weather endpoint.
type weatherQuery struct {
	City  string
	Lat   string `validate:"omitempty,latitude"`
	Lon   string `validate:"omitempty,longitude"`
	Units string `validate:"omitempty,oneof=metric imperial"`
}

func (q *weatherQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")
	q.Lat = c.Query("lat")
	q.Lon = c.Query("lon")
	q.Units = c.Query("units")

	return validate.Struct(q)
}

func (q weatherQuery) toQuery() weather.Query {
	out := weather.Query{City: q.City}
	if q.Lat == "" || q.Lon == "" {
		return out
	}
	lat, errLat := strconv.ParseFloat(q.Lat, 64)
	lon, errLon := strconv.ParseFloat(q.Lon, 64)
	if errLat == nil && errLon == nil {
		out.Lat, out.Lon = &lat, &lon
	}
	return out
}

type summarizeRequest struct {
	WeatherData *weather.Model `json:"weatherData" validate:"required"`
}

// weatherError maps domain errors to HTTP answers. Upstream status and
// message pass through unchanged.
func weatherError(err error) error {
	var upstream *weather.UpstreamError
	switch {
	case errors.Is(err, weather.ErrMissingLocation),
		errors.Is(err, weather.ErrInvalidLocation),
		errors.Is(err, weather.ErrInvalidUnits):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, "City not found")
	case errors.Is(err, weather.ErrNotConfigured):
		return fiber.NewError(fiber.StatusInternalServerError, "API key is missing")
	case errors.As(err, &upstream):
		return fiber.NewError(upstream.Status, upstream.Message)
	default:
		log.WithFields(log.Fields{"error": err}).Error("weather request failed")
		return fiber.NewError(fiber.StatusInternalServerError, "An internal server error occurred.")
	}
}

func summaryError(err error) error {
	switch {
	case errors.Is(err, summary.ErrIncompleteModel):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid or missing weather data provided.")
	case errors.Is(err, summary.ErrNotConfigured):
		log.Error("generator api key is not configured")
		return fiber.NewError(fiber.StatusInternalServerError, "Server configuration error.")
	case errors.Is(err, summary.ErrUnavailable):
		return fiber.NewError(fiber.StatusBadGateway, "Failed to generate summary from AI service.")
	default:
		log.WithFields(log.Fields{"error": err}).Error("summarize request failed")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to communicate with the summarization service.")
	}
}
