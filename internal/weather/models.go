package weather

import (
	"fmt"
	"time"
)

// Location is a resolved geographic point.
type Location struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Admin1  string  `json:"admin1,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lng"`
}

// Key returns a canonical coordinate key for logging.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// Suggestion is an alternative geocoding match offered to the caller.
type Suggestion struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Admin1  string `json:"admin1"`
}

// GeocodeResult is the best match for a place name plus alternatives.
type GeocodeResult struct {
	Location    Location
	Suggestions []Suggestion
}

// Reading is one provider's current conditions. Nil fields were not reported.
// Wind speed is in km/h, the unit the model was trained on.
type Reading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC *float64
	HumidityPct  *float64
	WindSpeedKmh *float64
	RainMm       *float64
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}

// Conditions is the aggregated view across successful providers.
type Conditions struct {
	Reading
	Providers []ProviderContribution `json:"providers,omitempty"`
}

func ptr(v float64) *float64 { return &v }
