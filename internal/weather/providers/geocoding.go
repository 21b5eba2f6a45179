package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-forecast/internal/resilience"
	"github.com/i474232898/air-quality-forecast/internal/weather"
)

const (
	openMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	geocodeCandidates = 10
	maxSuggestions    = 5
)

// OpenMeteoGeocoder resolves place names with the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	baseURL string
	httpCfg resilience.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoGeocoder creates a geocoder. An empty baseURL selects the public endpoint.
func NewOpenMeteoGeocoder(client *http.Client, baseURL string) *OpenMeteoGeocoder {
	if baseURL == "" {
		baseURL = openMeteoGeocodingURL
	}
	return &OpenMeteoGeocoder{
		baseURL: baseURL,
		httpCfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff,
		},
		circuit: resilience.NewBreaker("openmeteo-geocoding"),
	}
}

func (g *OpenMeteoGeocoder) Name() string {
	return "openmeteo-geocoding"
}

type openMeteoPlace struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (pl openMeteoPlace) suggestion() weather.Suggestion {
	return weather.Suggestion{Name: pl.Name, Country: pl.Country, Admin1: pl.Admin1}
}

func (g *OpenMeteoGeocoder) search(ctx context.Context, name string, count int) ([]openMeteoPlace, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("name", name)
		values.Set("count", strconv.Itoa(count))
		values.Set("language", "en")
		values.Set("format", "json")

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := resilience.Do(ctx, g.httpCfg, g.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Results []openMeteoPlace `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	return payload.Results, nil
}

// Geocode returns the first match and up to five alternatives.
func (g *OpenMeteoGeocoder) Geocode(ctx context.Context, name string) (weather.GeocodeResult, error) {
	places, err := g.search(ctx, name, geocodeCandidates)
	if err != nil {
		return weather.GeocodeResult{}, err
	}
	if len(places) == 0 {
		return weather.GeocodeResult{}, &weather.NotFoundError{Query: name}
	}

	best := places[0]
	res := weather.GeocodeResult{
		Location: weather.Location{
			Name:    best.Name,
			Country: best.Country,
			Admin1:  best.Admin1,
			Lat:     best.Latitude,
			Lon:     best.Longitude,
		},
	}
	for i, pl := range places {
		if i == maxSuggestions {
			break
		}
		res.Suggestions = append(res.Suggestions, pl.suggestion())
	}
	return res, nil
}

// Suggest performs a looser lookup used to enrich not-found responses.
func (g *OpenMeteoGeocoder) Suggest(ctx context.Context, name string, limit int) ([]weather.Suggestion, error) {
	if limit <= 0 {
		limit = maxSuggestions
	}
	places, err := g.search(ctx, name, limit)
	if err != nil {
		return nil, err
	}
	out := make([]weather.Suggestion, 0, len(places))
	for _, pl := range places {
		out = append(out, pl.suggestion())
	}
	return out, nil
}
