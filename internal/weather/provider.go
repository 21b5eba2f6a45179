package weather

import "context"

// Provider abstracts a current-conditions source (e.g. Open-Meteo, OpenWeatherMap, WeatherAPI).
type Provider interface {
	Name() string
	Current(ctx context.Context, lat, lon float64) (Reading, error)
}

// Geocoder resolves place names. Geocode returns *NotFoundError when nothing matches.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, name string) (GeocodeResult, error)
	Suggest(ctx context.Context, name string, limit int) ([]Suggestion, error)
}
