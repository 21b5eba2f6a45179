package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the service's Prometheus instruments. A nil *Collector is valid and
// records nothing.
type Collector struct {
	ForecastsTotal    *prometheus.CounterVec
	ForecastDuration  prometheus.Histogram
	StateRecoveries   *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	ProviderDuration  *prometheus.HistogramVec
	EventsPublished   *prometheus.CounterVec
}

// NewCollector registers the instruments on reg under namespace.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ForecastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Forecast requests by outcome category",
			},
			[]string{"outcome"},
		),

		ForecastDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_duration_seconds",
				Help:      "End-to-end forecast duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20},
			},
		),

		StateRecoveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_recoveries_total",
				Help:      "Entity state buffers rebuilt, by reason",
			},
			[]string{"reason"},
		),

		InferenceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inference_duration_seconds",
				Help:      "Model inference duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
			},
			[]string{"status"},
		),

		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Outbound provider call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"provider", "status"},
		),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Forecast events published, by status",
			},
			[]string{"status"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveForecast records one finished forecast request.
func (c *Collector) ObserveForecast(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.ForecastsTotal.WithLabelValues(outcome).Inc()
	c.ForecastDuration.Observe(d.Seconds())
}

// StateRecovered counts a buffer rebuilt for reason.
func (c *Collector) StateRecovered(reason string) {
	if c == nil {
		return
	}
	c.StateRecoveries.WithLabelValues(reason).Inc()
}

// ObserveInference records one model invocation.
func (c *Collector) ObserveInference(d time.Duration, err error) {
	if c == nil {
		return
	}
	c.InferenceDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

// ObserveProvider records one outbound provider call.
func (c *Collector) ObserveProvider(provider string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.ProviderDuration.WithLabelValues(provider, status(err)).Observe(d.Seconds())
}

// EventPublished counts a publish attempt.
func (c *Collector) EventPublished(err error) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(status(err)).Inc()
}
