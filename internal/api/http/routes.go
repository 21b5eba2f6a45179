package httpapi

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-forecast/internal/forecast"
	"github.com/i474232898/air-quality-forecast/internal/store"
	"github.com/i474232898/air-quality-forecast/internal/weather"
)

var validate = validator.New()

// Forecaster is the service behind the HTTP API.
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) (forecast.Result, error)
	State(ctx context.Context, entityID string) (forecast.StateSummary, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Forecaster) {
	predict := func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.Forecast(c.UserContext(), req.toRequest())
		if err != nil {
			return err
		}
		res.RequestID = c.GetRespHeader(fiber.HeaderXRequestID)
		return c.JSON(res)
	}

	app.Post("/predict", predict)

	v1 := app.Group("/api/v1")
	v1.Post("/predict", predict)

	v1.Get("/entities/:id/state", func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil || strings.TrimSpace(id) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "invalid entity id")
		}

		sum, err := service.State(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	})
}

// predictRequest is the forecast request body. place_id is the legacy name of place_name.
type predictRequest struct {
	Lat       *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng       *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	PlaceName string   `json:"place_name" validate:"omitempty,max=200"`
	PlaceID   string   `json:"place_id" validate:"omitempty,max=200"`
}

func (r predictRequest) toRequest() forecast.Request {
	name := strings.TrimSpace(r.PlaceName)
	if name == "" {
		name = strings.TrimSpace(r.PlaceID)
	}
	return forecast.Request{Lat: r.Lat, Lng: r.Lng, PlaceName: name}
}

// ErrorHandler renders every failure as {"error": true, "category", "message"} plus
// suggestions for unresolved places.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, category := classify(err)

	body := fiber.Map{
		"error":    true,
		"category": category,
		"message":  err.Error(),
	}

	var nf *weather.NotFoundError
	if errors.As(err, &nf) {
		suggestions := nf.Suggestions
		if suggestions == nil {
			suggestions = []weather.Suggestion{}
		}
		body["message"] = "Location '" + nf.Query + "' not found"
		body["suggestions"] = suggestions
	}

	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		body["request_id"] = id
	}
	return c.Status(code).JSON(body)
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusBadRequest {
			return fe.Code, "invalid_request"
		}
		return fe.Code, "http"
	}
	if errors.Is(err, store.ErrNotFound) {
		return fiber.StatusNotFound, "not_found"
	}

	outcome := forecast.Outcome(err)
	switch outcome {
	case "invalid_request":
		return fiber.StatusBadRequest, outcome
	case "not_found":
		return fiber.StatusNotFound, outcome
	case "missing_observation", "dependency_error":
		return fiber.StatusBadGateway, outcome
	case "dependency_timeout":
		return fiber.StatusGatewayTimeout, outcome
	default:
		return fiber.StatusInternalServerError, outcome
	}
}
