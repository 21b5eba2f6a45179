package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "HTTP_TIMEOUT", "STATE_BACKEND", "STATE_DIR", "STATE_SQLITE_PATH", "DATABASE_URL",
		"STATE_KEY_HASH", "GEOCODER", "KAFKA_BROKERS", "REFRESH_INTERVAL", "WATCH_LOCATIONS", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.HTTPTimeout != 20*time.Second {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.StateBackend != BackendFile || cfg.StateDir != "state_store" || !cfg.StateKeyHash {
		t.Fatalf("unexpected state defaults: %+v", cfg)
	}
	if cfg.Geocoder != GeocoderOpenMeteo || cfg.RefreshInterval != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 0 || len(cfg.WatchLocations) != 0 {
		t.Fatalf("expected optional features disabled: %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STATE_BACKEND", "SQLite")
	t.Setenv("STATE_KEY_HASH", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("WATCH_LOCATIONS", "22.33,91.83; 23.81,90.41")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StateBackend != BackendSQLite || cfg.StateKeyHash {
		t.Fatalf("unexpected state config: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if len(cfg.WatchLocations) != 2 || cfg.WatchLocations[1].Lng != 90.41 {
		t.Fatalf("unexpected watch locations: %+v", cfg.WatchLocations)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.HTTPTimeout)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad backend":          {"STATE_BACKEND", "redis"},
		"bad duration":         {"HTTP_TIMEOUT", "soon"},
		"bad bool":             {"STATE_KEY_HASH", "maybe"},
		"bad geocoder":         {"GEOCODER", "bing"},
		"google without key":   {"GEOCODER", "google"},
		"postgres without dsn": {"STATE_BACKEND", "postgres"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("GOOGLE_GEOCODING_API_KEY", "")
			t.Setenv("DATABASE_URL", "")
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestParseWatchLocations(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"1,2", 1, false},
		{"1,2;;3,4;", 2, false},
		{"1;2", 0, true},
		{"91,0", 0, true},
		{"0,181", 0, true},
		{"a,b", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseWatchLocations(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseWatchLocations(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if len(got) != tc.want {
			t.Errorf("ParseWatchLocations(%q) = %d entries, want %d", tc.in, len(got), tc.want)
		}
	}
}
