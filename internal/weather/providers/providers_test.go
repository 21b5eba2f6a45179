package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/resilience"
	"github.com/i474232898/air-quality-forecast/internal/weather"
)

func TestOpenMeteoProviderCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("current") != openMeteoCurrentFields || q.Get("timezone") != "UTC" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("latitude") != "22.3569" || q.Get("longitude") != "91.7832" {
			t.Errorf("unexpected coordinates: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"time":"2024-06-03T10:00","temperature_2m":30.5,"relative_humidity_2m":71,"wind_speed_10m":7.2,"rain":0.0}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)
	r, err := p.Current(context.Background(), 22.3569, 91.7832)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Timestamp.Equal(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", r.Timestamp)
	}
	if *r.TemperatureC != 30.5 || *r.HumidityPct != 71 || *r.WindSpeedKmh != 7.2 || *r.RainMm != 0 {
		t.Fatalf("unexpected reading: %+v", r)
	}
}

func TestOpenMeteoProviderMissingFieldsStayNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"time":"2024-06-03T10:00","temperature_2m":30.5}}`))
	}))
	defer srv.Close()

	r, err := NewOpenMeteoProvider(srv.Client(), srv.URL).Current(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.HumidityPct != nil || r.WindSpeedKmh != nil || r.RainMm != nil {
		t.Fatalf("expected nil for omitted fields, got %+v", r)
	}
}

func TestOpenMeteoProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":true,"reason":"Latitude must be in range"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewOpenMeteoProvider(srv.Client(), srv.URL).Current(context.Background(), 100, 2)
	var statusErr *resilience.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestOpenWeatherConvertsWindToKmh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") != "k" {
			t.Errorf("missing api key: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"dt":1717408800,"main":{"temp":29,"humidity":80},"wind":{"speed":2}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "k")
	p.baseURL = srv.URL

	r, err := p.Current(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *r.WindSpeedKmh != 7.2 {
		t.Fatalf("expected 7.2 km/h, got %v", *r.WindSpeedKmh)
	}
	if r.RainMm == nil || *r.RainMm != 0 {
		t.Fatalf("expected zero rain when block absent, got %v", r.RainMm)
	}
}

func TestWeatherAPIProviderCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"last_updated_epoch":1717408800,"temp_c":28,"humidity":75,"wind_kph":11,"precip_mm":0.3}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "k")
	p.baseURL = srv.URL

	r, err := p.Current(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *r.WindSpeedKmh != 11 || *r.RainMm != 0.3 {
		t.Fatalf("unexpected reading: %+v", r)
	}
}

func TestKeyedProvidersRequireKey(t *testing.T) {
	for _, p := range []weather.Provider{NewOpenWeatherProvider(http.DefaultClient, ""), NewWeatherAPIProvider(http.DefaultClient, "")} {
		if _, err := p.Current(context.Background(), 1, 2); err == nil {
			t.Errorf("%s: expected error without api key", p.Name())
		}
	}
}

const geocodingBody = `{"results":[
	{"name":"Dhaka","country":"Bangladesh","admin1":"Dhaka Division","latitude":23.7104,"longitude":90.40744},
	{"name":"Dhaka","country":"India","admin1":"Bihar","latitude":26.67,"longitude":85.17},
	{"name":"Dhakai","country":"Nepal","latitude":1,"longitude":1},
	{"name":"D4","country":"X","latitude":1,"longitude":1},
	{"name":"D5","country":"X","latitude":1,"longitude":1},
	{"name":"D6","country":"X","latitude":1,"longitude":1}
]}`

func TestOpenMeteoGeocoderGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("count") != "10" || q.Get("language") != "en" || q.Get("name") != "Dhaka" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(geocodingBody))
	}))
	defer srv.Close()

	res, err := NewOpenMeteoGeocoder(srv.Client(), srv.URL).Geocode(context.Background(), "Dhaka")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Location.Country != "Bangladesh" || res.Location.Lat != 23.7104 || res.Location.Lon != 90.40744 {
		t.Fatalf("unexpected best match: %+v", res.Location)
	}
	if len(res.Suggestions) != maxSuggestions {
		t.Fatalf("expected %d suggestions, got %d", maxSuggestions, len(res.Suggestions))
	}
	if res.Suggestions[1].Admin1 != "Bihar" {
		t.Fatalf("unexpected suggestion: %+v", res.Suggestions[1])
	}
}

func TestOpenMeteoGeocoderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generationtime_ms":0.2}`))
	}))
	defer srv.Close()

	_, err := NewOpenMeteoGeocoder(srv.Client(), srv.URL).Geocode(context.Background(), "Atlantys")
	var nf *weather.NotFoundError
	if !errors.As(err, &nf) || nf.Query != "Atlantys" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestOpenMeteoGeocoderSuggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "5" {
			t.Errorf("expected count=5, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":[{"name":"Atlanta","country":"United States","admin1":"Georgia"}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenMeteoGeocoder(srv.Client(), srv.URL).Suggest(context.Background(), "Atlantys", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Name != "Atlanta" {
		t.Fatalf("unexpected suggestions: %+v", out)
	}
}

func TestIsZeroResults(t *testing.T) {
	if !isZeroResults(errors.New("ZERO_RESULTS")) {
		t.Fatal("expected ZERO_RESULTS to be detected")
	}
	if isZeroResults(errors.New("REQUEST_DENIED")) {
		t.Fatal("REQUEST_DENIED is not a not-found")
	}
}
