package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/air-quality-forecast/internal/common"
	"github.com/i474232898/air-quality-forecast/internal/weather"
)

// GoogleGeocoder resolves place names through the Google Geocoding API.
// The client library keeps its key in package state, so only one key is supported per process.
type GoogleGeocoder struct{}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}
}

func (g *GoogleGeocoder) Name() string {
	return "google-geocoding"
}

type googleResult struct {
	loc  geocoder.Location
	addr []geocoder.Address
	err  error
}

// lookup runs the blocking client calls off the caller's goroutine so ctx is honoured.
func (g *GoogleGeocoder) lookup(ctx context.Context, name string) (geocoder.Location, []geocoder.Address, error) {
	done := make(chan googleResult, 1)
	go func() {
		loc, err := geocoder.Geocoding(geocoder.Address{City: name})
		if err != nil {
			done <- googleResult{err: err}
			return
		}
		addrs, err := geocoder.GeocodingReverse(loc)
		done <- googleResult{loc: loc, addr: addrs, err: err}
	}()

	select {
	case <-ctx.Done():
		return geocoder.Location{}, nil, ctx.Err()
	case r := <-done:
		return r.loc, r.addr, r.err
	}
}

func isZeroResults(err error) bool {
	msg := strings.ToLower(err.Error())
	return common.HasAny(msg, "zero_results", "no results", "not found")
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, name string) (weather.GeocodeResult, error) {
	loc, addrs, err := g.lookup(ctx, name)
	if err != nil {
		if isZeroResults(err) {
			return weather.GeocodeResult{}, &weather.NotFoundError{Query: name}
		}
		return weather.GeocodeResult{}, fmt.Errorf("google geocoding: %w", err)
	}

	res := weather.GeocodeResult{
		Location: weather.Location{Name: name, Lat: loc.Latitude, Lon: loc.Longitude},
	}
	for i, a := range addrs {
		if i == 0 {
			res.Location.Country = a.Country
			res.Location.Admin1 = a.State
			if a.City != "" {
				res.Location.Name = a.City
			}
		}
		if len(res.Suggestions) == maxSuggestions {
			break
		}
		res.Suggestions = append(res.Suggestions, weather.Suggestion{Name: a.City, Country: a.Country, Admin1: a.State})
	}
	return res, nil
}

// Suggest returns the reverse-geocoded addresses around the best match, if any.
func (g *GoogleGeocoder) Suggest(ctx context.Context, name string, limit int) ([]weather.Suggestion, error) {
	res, err := g.Geocode(ctx, name)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(res.Suggestions) > limit {
		return res.Suggestions[:limit], nil
	}
	return res.Suggestions, nil
}
