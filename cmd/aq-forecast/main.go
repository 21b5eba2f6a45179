package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/air-quality-forecast/internal/api/http"
	"github.com/i474232898/air-quality-forecast/internal/config"
	"github.com/i474232898/air-quality-forecast/internal/events"
	"github.com/i474232898/air-quality-forecast/internal/features"
	"github.com/i474232898/air-quality-forecast/internal/forecast"
	"github.com/i474232898/air-quality-forecast/internal/inference"
	"github.com/i474232898/air-quality-forecast/internal/metrics"
	"github.com/i474232898/air-quality-forecast/internal/pipeline"
	"github.com/i474232898/air-quality-forecast/internal/scheduler"
	"github.com/i474232898/air-quality-forecast/internal/store"
	"github.com/i474232898/air-quality-forecast/internal/weather"
	"github.com/i474232898/air-quality-forecast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.SetOutput(newLevelWriter(os.Stderr, cfg.LogLevel))

	// Shared HTTP client for outbound provider and model calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewCollector("aq_forecast", reg)

	backend, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("failed to open %s state backend: %v", cfg.StateBackend, err)
	}
	st := store.New(backend, cfg.StateKeyHash)
	defer st.Close()

	artifacts, err := inference.LoadArtifacts(cfg.ModelDir, cfg.FeatureColsFile, cfg.XScalerFile, cfg.YScalerFile)
	if err != nil {
		log.Fatalf("failed to load model artifacts: %v", err)
	}
	log.Printf("INFO: loaded feature schema with %d columns (%d lags)", artifacts.Schema.Width(), len(artifacts.Schema.Lags()))

	adapter := &inference.Adapter{
		XScaler: artifacts.XScaler,
		YScaler: artifacts.YScaler,
		Model:   inference.NewHTTPModel(httpClient, cfg.ModelURL, cfg.ModelName),
		Index:   inference.MaxSubIndex{SubIndices: inference.DefaultSubIndices},
		Targets: features.Targets,
	}

	// Providers with resilience (backoff + circuit breaker). Open-Meteo needs no key.
	provs := []weather.Provider{providers.NewOpenMeteoProvider(httpClient, "")}
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}

	var geo weather.Geocoder = providers.NewOpenMeteoGeocoder(httpClient, "")
	if cfg.Geocoder == config.GeocoderGoogle {
		geo = providers.NewGoogleGeocoder(cfg.GoogleGeocodingAPIKey)
	}

	var pub events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("INFO: publishing forecast events to %s", cfg.KafkaTopic)
	}
	defer pub.Close()

	// Core service orchestrating geocoding, weather, the buffer pipeline and inference.
	service := forecast.NewService(forecast.Deps{
		Weather:   weather.NewService(provs, cfg.HTTPTimeout, m),
		Geocoder:  geo,
		Store:     st,
		Pipeline:  pipeline.New(st, m),
		Predictor: adapter,
		Schema:    artifacts.Schema,
		Publisher: pub,
		Metrics:   m,
		Timeout:   cfg.HTTPTimeout,
	})

	// Scheduler that keeps watched buffers advancing without traffic.
	sched := scheduler.New(cfg.WatchLocations, cfg.RefreshInterval, 3*cfg.HTTPTimeout, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "aq-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          4 * cfg.HTTPTimeout,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "aq-forecast",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s (state backend %s)", cfg.Port, cfg.StateBackend)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func openBackend(cfg *config.AppConfig) (store.Backend, error) {
	switch cfg.StateBackend {
	case config.BackendMemory:
		log.Println("WARN: memory state backend selected; buffers are lost on restart")
		return store.NewMemoryBackend(), nil
	case config.BackendFile:
		b, err := store.NewFileBackend(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendSQLite, config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		driver, dsn := store.DriverSQLite, cfg.StateSQLitePath
		if cfg.StateBackend == config.BackendPostgres {
			driver, dsn = store.DriverPostgres, cfg.DatabaseURL
		} else if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
		b, err := store.OpenSQL(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
