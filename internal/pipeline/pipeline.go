package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/features"
	"github.com/i474232898/air-quality-forecast/internal/inference"
	"github.com/i474232898/air-quality-forecast/internal/metrics"
	"github.com/i474232898/air-quality-forecast/internal/store"
)

// Predictor turns a model input matrix into pollutant concentrations and an index.
type Predictor interface {
	Predict(ctx context.Context, ts time.Time, x features.Matrix) (inference.Prediction, error)
}

// Input is one forecast step for an entity.
type Input struct {
	EntityID  string
	Timestamp time.Time
	Row       features.Row
	Schema    features.Schema
}

// Output is the result of a successful step.
type Output struct {
	Matrix     features.Matrix
	Prediction inference.Prediction
	ColdStart  bool
}

// Pipeline advances per-entity rolling buffers and feeds predictions back into them.
type Pipeline struct {
	store   *store.Store
	locks   *KeyedMutex
	metrics *metrics.Collector
}

// New creates a Pipeline. metrics may be nil.
func New(st *store.Store, m *metrics.Collector) *Pipeline {
	return &Pipeline{
		store:   st,
		locks:   NewKeyedMutex(),
		metrics: m,
	}
}

// Run advances the entity's buffer, persists it, invokes pred and, only when pred
// succeeds, persists the new pollutant values for the next call. The whole sequence
// holds the entity's storage-key lock, so concurrent runs for one entity are serialized.
func (p *Pipeline) Run(ctx context.Context, in Input, pred Predictor) (Output, error) {
	unlock := p.locks.Lock(p.store.Key(in.EntityID))
	defer unlock()

	st, x, cold, err := p.advance(ctx, in)
	if err != nil {
		return Output{}, err
	}

	start := time.Now()
	prediction, err := pred.Predict(ctx, in.Timestamp, x)
	p.metrics.ObserveInference(time.Since(start), err)
	if err != nil {
		return Output{}, err
	}

	last := make(map[string]float64, len(features.Targets))
	for _, t := range features.Targets {
		last[t] = prediction.Pollutants[t]
	}
	st.LastPollutants = last
	if err := p.store.Save(ctx, in.EntityID, st); err != nil {
		return Output{}, fmt.Errorf("persist predictions: %w", err)
	}

	return Output{Matrix: x, Prediction: prediction, ColdStart: cold}, nil
}

// Advance runs the buffer update alone, without inference. The persisted
// last_pollutants are left unchanged.
func (p *Pipeline) Advance(ctx context.Context, in Input) (features.Matrix, error) {
	unlock := p.locks.Lock(p.store.Key(in.EntityID))
	defer unlock()

	_, x, _, err := p.advance(ctx, in)
	return x, err
}

// advance must be called with the entity lock held.
func (p *Pipeline) advance(ctx context.Context, in Input) (*store.EntityState, features.Matrix, bool, error) {
	st, err := p.store.Load(ctx, in.EntityID)
	cold := false

	var corrupt *store.CorruptStateError
	switch {
	case errors.As(err, &corrupt):
		log.Printf("WARN: pipeline: %v; rebuilding buffer for %q", err, in.EntityID)
		p.metrics.StateRecovered("corrupt")
		st = &store.EntityState{LastPollutants: features.ZeroPollutants()}
	case err != nil:
		return nil, features.Matrix{}, false, err
	case st == nil:
		cold = true
		p.metrics.StateRecovered("cold_start")
		if st, err = p.store.Init(ctx, in.EntityID, in.Row); err != nil {
			return nil, features.Matrix{}, false, fmt.Errorf("init state: %w", err)
		}
	}

	if n := len(st.Buffer); n != features.Lookback && corrupt == nil {
		log.Printf("WARN: pipeline: buffer for %q has %d rows, normalizing to %d", in.EntityID, n, features.Lookback)
		p.metrics.StateRecovered("resized")
	}

	buf, x := Window(st.Buffer, in.Row, st.LastPollutants, in.Schema)
	st.Buffer = buf
	if err := p.store.Save(ctx, in.EntityID, st); err != nil {
		return nil, features.Matrix{}, false, fmt.Errorf("persist buffer: %w", err)
	}
	return st, x, cold, nil
}
