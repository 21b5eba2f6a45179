package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/air-quality-forecast/internal/scheduler"
)

// State backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Geocoders.
const (
	GeocoderOpenMeteo = "openmeteo"
	GeocoderGoogle    = "google"
)

type AppConfig struct {
	Port string

	// HTTPTimeout bounds each outbound provider, geocoder or model call.
	HTTPTimeout time.Duration

	StateBackend    string
	StateDir        string
	StateSQLitePath string
	DatabaseURL     string
	// StateKeyHash appends a digest of the entity id to storage keys so distinct ids never share a record.
	StateKeyHash bool

	ModelURL        string
	ModelName       string
	ModelDir        string
	XScalerFile     string
	YScalerFile     string
	FeatureColsFile string

	Geocoder              string
	GoogleGeocodingAPIKey string
	OpenWeatherAPIKey     string
	WeatherAPIKey         string

	KafkaBrokers []string
	KafkaTopic   string

	// RefreshInterval controls how often watched locations are forecast.
	RefreshInterval time.Duration
	WatchLocations  []scheduler.Coordinate

	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}

	cfg.StateBackend = strings.ToLower(getenvDefault("STATE_BACKEND", BackendFile))
	switch cfg.StateBackend {
	case BackendFile, BackendSQLite, BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid STATE_BACKEND %q", cfg.StateBackend)
	}
	cfg.StateDir = getenvDefault("STATE_DIR", "state_store")
	cfg.StateSQLitePath = getenvDefault("STATE_SQLITE_PATH", filepath.Join(cfg.StateDir, "state.db"))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StateBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres state backend")
	}
	if cfg.StateKeyHash, err = getenvBool("STATE_KEY_HASH", true); err != nil {
		return nil, err
	}

	cfg.ModelURL = getenvDefault("MODEL_URL", "http://localhost:8501")
	cfg.ModelName = getenvDefault("MODEL_NAME", "aq_lstm_log_huber_lags")
	cfg.ModelDir = getenvDefault("MODEL_DIR", "saved_models2")
	cfg.XScalerFile = getenvDefault("X_SCALER_FILE", "aq_x_scaler_log_huber_lags.json")
	cfg.YScalerFile = getenvDefault("Y_SCALER_FILE", "aq_y_scaler_log_huber_lags.json")
	cfg.FeatureColsFile = getenvDefault("FEATURE_COLS_FILE", "aq_feature_cols_log_huber_lags.txt")

	cfg.Geocoder = strings.ToLower(getenvDefault("GEOCODER", GeocoderOpenMeteo))
	cfg.GoogleGeocodingAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	switch cfg.Geocoder {
	case GeocoderOpenMeteo:
	case GeocoderGoogle:
		if cfg.GoogleGeocodingAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_GEOCODING_API_KEY is required for the google geocoder")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER %q", cfg.Geocoder)
	}
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"), ",")
	cfg.KafkaTopic = getenvDefault("KAFKA_TOPIC", "aq-forecasts")

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 60*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WatchLocations, err = ParseWatchLocations(os.Getenv("WATCH_LOCATIONS")); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))

	return cfg, nil
}

// ParseWatchLocations parses "lat,lng;lat,lng". Blank entries are skipped.
func ParseWatchLocations(s string) ([]scheduler.Coordinate, error) {
	var out []scheduler.Coordinate
	for _, entry := range splitList(s, ";") {
		parts := strings.Split(entry, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid WATCH_LOCATIONS entry %q: want lat,lng", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude in WATCH_LOCATIONS entry %q", entry)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("invalid longitude in WATCH_LOCATIONS entry %q", entry)
		}
		out = append(out, scheduler.Coordinate{Lat: lat, Lng: lng})
	}
	return out, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
