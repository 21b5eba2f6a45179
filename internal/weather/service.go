package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/metrics"
)

// Service fans a current-conditions lookup out to every configured provider.
type Service struct {
	providers []Provider
	timeout   time.Duration
	metrics   *metrics.Collector
}

// NewService creates a Service. timeout bounds each provider call; metrics may be nil.
func NewService(providers []Provider, timeout time.Duration, m *metrics.Collector) *Service {
	return &Service{
		providers: providers,
		timeout:   timeout,
		metrics:   m,
	}
}

// Current fetches from all providers concurrently and aggregates successful readings.
// When every provider fails the first provider's classified error is returned.
func (s *Service) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	if len(s.providers) == 0 {
		return Conditions{}, fmt.Errorf("no weather providers configured")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []Reading
		errs     = make([]error, len(s.providers))
	)

	for i, p := range s.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			start := time.Now()
			r, err := p.Current(callCtx, lat, lon)
			s.metrics.ObserveProvider(p.Name(), time.Since(start), err)
			if err != nil {
				log.Printf("WARN: provider %s fetch failed for %.4f,%.4f: %v", p.Name(), lat, lon, err)
				errs[i] = Classify(p.Name(), err)
				return
			}

			mu.Lock()
			readings = append(readings, r)
			mu.Unlock()
		}(i, p)
	}

	wg.Wait()

	if len(readings) == 0 {
		return Conditions{}, errs[0]
	}
	return AggregateReadings(readings), nil
}

// Geocode resolves name with a bounded timeout and classifies failures.
func Geocode(ctx context.Context, g Geocoder, name string, timeout time.Duration) (GeocodeResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := g.Geocode(callCtx, name)
	return res, Classify(g.Name(), err)
}
