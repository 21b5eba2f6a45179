package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/air-quality-forecast/internal/forecast"
)

// Forecaster runs one forecast request.
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) (forecast.Result, error)
}

// Coordinate is a watched location.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Scheduler periodically advances the buffers of watched locations.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	forecaster Forecaster
	watchlist  []Coordinate
	interval   time.Duration
	timeout    time.Duration
}

// New creates a new Scheduler. timeout bounds each location's run.
func New(watchlist []Coordinate, interval, timeout time.Duration, f Forecaster) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler:  s,
		forecaster: f,
		watchlist:  watchlist,
		interval:   interval,
		timeout:    timeout,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.watchlist) == 0 {
		log.Println("INFO: scheduler: no watch locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce forecasts every watched location concurrently and returns the number of failures.
func (s *Scheduler) RunOnce() int {
	log.Println("INFO: scheduler: running watchlist refresh")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	for _, c := range s.watchlist {
		wg.Add(1)
		go func(c Coordinate) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			lat, lng := c.Lat, c.Lng
			res, err := s.forecaster.Forecast(ctx, forecast.Request{Lat: &lat, Lng: &lng})
			if err != nil {
				log.Printf("WARN: scheduler: refresh failed for %s: %v", forecast.EntityID(lat, lng), err)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}
			log.Printf("DEBUG: scheduler: %s aqi=%.1f (%s)", res.EntityID, res.Index, res.Category)
		}(c)
	}
	wg.Wait()

	log.Printf("INFO: scheduler: completed watchlist refresh (%d/%d ok)", len(s.watchlist)-failures, len(s.watchlist))
	return failures
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
