package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/events"
	"github.com/i474232898/air-quality-forecast/internal/features"
	"github.com/i474232898/air-quality-forecast/internal/inference"
	"github.com/i474232898/air-quality-forecast/internal/metrics"
	"github.com/i474232898/air-quality-forecast/internal/pipeline"
	"github.com/i474232898/air-quality-forecast/internal/store"
	"github.com/i474232898/air-quality-forecast/internal/weather"
)

// Note is attached to every forecast response.
const Note = "Model keeps a rolling 48-step buffer per place."

const suggestionLimit = 5

// ErrNoLocation is returned when a request carries neither coordinates nor a place name.
var ErrNoLocation = errors.New("either place_name or lat/lng must be provided")

// WeatherSource returns current conditions for a coordinate.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (weather.Conditions, error)
}

// Request identifies the entity to forecast. Coordinates win when both are set.
type Request struct {
	Lat       *float64
	Lng       *float64
	PlaceName string
}

// Result is a completed forecast.
type Result struct {
	EntityID  string       `json:"place_id"`
	Name      string       `json:"location_name"`
	Country   string       `json:"country"`
	Lat       float64      `json:"lat"`
	Lng       float64      `json:"lng"`
	Timestamp time.Time    `json:"timestamp_utc"`
	Met       features.Row `json:"met"`
	inference.Prediction
	ColdStart bool   `json:"cold_start"`
	Note      string `json:"note"`
	RequestID string `json:"request_id,omitempty"`
}

// StateSummary describes an entity's persisted buffer.
type StateSummary struct {
	EntityID       string             `json:"entity_id"`
	StorageKey     string             `json:"storage_key"`
	BufferLength   int                `json:"buffer_length"`
	LastPollutants map[string]float64 `json:"last_pollutants"`
	UpdatedAt      time.Time          `json:"updated_at,omitempty"`
	Corrupt        bool               `json:"corrupt,omitempty"`
}

// Deps are the collaborators a Service orchestrates.
type Deps struct {
	Weather   WeatherSource
	Geocoder  weather.Geocoder
	Store     *store.Store
	Pipeline  *pipeline.Pipeline
	Predictor pipeline.Predictor
	Schema    features.Schema
	Publisher events.Publisher
	Metrics   *metrics.Collector
	// Timeout bounds each geocoding and event publication call.
	Timeout time.Duration
}

// Service resolves a location, gathers weather, advances the entity buffer and predicts.
type Service struct {
	deps Deps
	now  func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 20 * time.Second
	}
	return &Service{deps: deps, now: time.Now}
}

type resolved struct {
	entityID string
	name     string
	country  string
	lat, lng float64
}

// EntityID formats a coordinate pair as an entity identifier.
func EntityID(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "_" + strconv.FormatFloat(lng, 'f', -1, 64)
}

func (s *Service) resolve(ctx context.Context, req Request) (resolved, error) {
	if req.Lat != nil && req.Lng != nil {
		lat, lng := *req.Lat, *req.Lng
		return resolved{
			entityID: EntityID(lat, lng),
			name:     fmt.Sprintf("Location (%.4f, %.4f)", lat, lng),
			lat:      lat,
			lng:      lng,
		}, nil
	}
	if req.PlaceName == "" {
		return resolved{}, ErrNoLocation
	}

	res, err := weather.Geocode(ctx, s.deps.Geocoder, req.PlaceName, s.deps.Timeout)
	var nf *weather.NotFoundError
	if errors.As(err, &nf) {
		if len(nf.Suggestions) == 0 {
			nf.Suggestions = s.suggest(ctx, req.PlaceName)
		}
		return resolved{}, nf
	}
	if err != nil {
		return resolved{}, err
	}

	name := res.Location.Name
	if name == "" {
		name = req.PlaceName
	}
	return resolved{
		entityID: req.PlaceName,
		name:     name,
		country:  res.Location.Country,
		lat:      res.Location.Lat,
		lng:      res.Location.Lon,
	}, nil
}

// suggest is best effort; failures yield no suggestions.
func (s *Service) suggest(ctx context.Context, name string) []weather.Suggestion {
	callCtx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	out, err := s.deps.Geocoder.Suggest(callCtx, name, suggestionLimit)
	if err != nil {
		log.Printf("DEBUG: forecast: suggestion lookup for %q failed: %v", name, err)
		return []weather.Suggestion{}
	}
	if out == nil {
		out = []weather.Suggestion{}
	}
	return out
}

// Forecast runs the full request flow for one entity.
func (s *Service) Forecast(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() {
		s.deps.Metrics.ObserveForecast(Outcome(err), time.Since(start))
	}()

	loc, err := s.resolve(ctx, req)
	if err != nil {
		return Result{}, err
	}

	ts := features.HourUTC(s.now())

	cond, err := s.deps.Weather.Current(ctx, loc.lat, loc.lng)
	if err != nil {
		return Result{}, err
	}

	met, err := features.NormalizeMet(features.Observation{
		Temperature: cond.TemperatureC,
		Humidity:    cond.HumidityPct,
		WindSpeed:   cond.WindSpeedKmh,
		Rain:        cond.RainMm,
	})
	if err != nil {
		return Result{}, err
	}

	out, err := s.deps.Pipeline.Run(ctx, pipeline.Input{
		EntityID:  loc.entityID,
		Timestamp: ts,
		Row:       features.BuildRow(ts, met),
		Schema:    s.deps.Schema,
	}, s.deps.Predictor)
	if err != nil {
		return Result{}, err
	}

	s.publish(ctx, loc.entityID, ts, out.Prediction)

	return Result{
		EntityID:   loc.entityID,
		Name:       loc.name,
		Country:    loc.country,
		Lat:        loc.lat,
		Lng:        loc.lng,
		Timestamp:  ts,
		Met:        met,
		Prediction: out.Prediction,
		ColdStart:  out.ColdStart,
		Note:       Note,
	}, nil
}

// publish never fails the forecast.
func (s *Service) publish(ctx context.Context, entityID string, ts time.Time, p inference.Prediction) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.Timeout)
	defer cancel()

	ev := events.NewForecastEvent(entityID, ts, p.Pollutants, p.Index, p.Category)
	err := s.deps.Publisher.Publish(callCtx, ev)
	if _, nop := s.deps.Publisher.(events.NopPublisher); !nop {
		s.deps.Metrics.EventPublished(err)
	}
	if err != nil {
		log.Printf("WARN: forecast: publish event for %q failed: %v", entityID, err)
	}
}

// State summarizes the persisted buffer for entityID. It returns store.ErrNotFound
// when the entity has never been forecast.
func (s *Service) State(ctx context.Context, entityID string) (StateSummary, error) {
	sum := StateSummary{EntityID: entityID, StorageKey: s.deps.Store.Key(entityID)}

	st, err := s.deps.Store.Load(ctx, entityID)
	var corrupt *store.CorruptStateError
	switch {
	case errors.As(err, &corrupt):
		sum.Corrupt = true
		return sum, nil
	case err != nil:
		return StateSummary{}, err
	case st == nil:
		return StateSummary{}, store.ErrNotFound
	}

	sum.BufferLength = len(st.Buffer)
	sum.LastPollutants = st.LastPollutants
	sum.UpdatedAt = st.UpdatedAt
	return sum, nil
}

// Outcome labels err for metrics and error responses.
func Outcome(err error) string {
	var (
		nf      *weather.NotFoundError
		dep     *weather.DependencyError
		missing *features.MissingObservationError
		inf     *inference.InferenceError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoLocation):
		return "invalid_request"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &missing):
		return "missing_observation"
	case errors.Is(err, weather.ErrDependencyTimeout):
		return "dependency_timeout"
	case errors.As(err, &dep):
		return "dependency_error"
	case errors.As(err, &inf):
		return "inference_error"
	default:
		return "internal_error"
	}
}
