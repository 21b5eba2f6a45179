package inference

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/features"
)

// Adapter chains input scaling, the model, inverse output scaling, the inverse log
// transform and the index derivation. It holds no per-call state.
type Adapter struct {
	XScaler Scaler
	YScaler Scaler
	Model   Model
	Index   IndexDeriver
	Targets []string
}

// Predict runs the chain. Any failure is an *InferenceError naming its stage.
func (a *Adapter) Predict(ctx context.Context, ts time.Time, x features.Matrix) (Prediction, error) {
	scaled, err := a.XScaler.Transform(x.Values)
	if err != nil {
		return Prediction{}, &InferenceError{Stage: StageScaleInput, Err: err}
	}

	raw, err := a.Model.Predict(ctx, scaled)
	if err != nil {
		return Prediction{}, &InferenceError{Stage: StagePredict, Err: err}
	}

	logv, err := a.YScaler.Inverse(raw)
	if err != nil {
		return Prediction{}, &InferenceError{Stage: StageUnscaleOutput, Err: err}
	}

	conc, err := InverseLog(logv)
	if err != nil {
		return Prediction{}, &InferenceError{Stage: StageInverseLog, Err: err}
	}

	targets := a.Targets
	if len(targets) == 0 {
		targets = features.Targets
	}
	if len(conc) < len(targets) {
		return Prediction{}, &InferenceError{
			Stage: StagePredict,
			Err:   fmt.Errorf("model returned %d outputs, want %d", len(conc), len(targets)),
		}
	}

	pollutants := make(map[string]float64, len(targets))
	for i, t := range targets {
		pollutants[t] = conc[i]
	}

	index, err := a.Index.Derive(ctx, ts, pollutants)
	if err == nil && (math.IsNaN(index) || math.IsInf(index, 0)) {
		err = fmt.Errorf("non-finite index %v", index)
	}
	if err != nil {
		return Prediction{}, &InferenceError{Stage: StageDeriveIndex, Err: err}
	}

	return Prediction{
		Pollutants: pollutants,
		Index:      index,
		Category:   Category(index),
	}, nil
}

// Artifacts are the files exported next to the trained model.
type Artifacts struct {
	Schema  features.Schema
	XScaler *AffineScaler
	YScaler *AffineScaler
}

// LoadArtifacts reads the feature columns and both scalers from dir and checks that
// their widths agree.
func LoadArtifacts(dir, featureColsFile, xScalerFile, yScalerFile string) (*Artifacts, error) {
	schema, err := features.LoadSchemaFile(filepath.Join(dir, featureColsFile))
	if err != nil {
		return nil, err
	}
	xs, err := LoadScaler(filepath.Join(dir, xScalerFile))
	if err != nil {
		return nil, fmt.Errorf("input scaler: %w", err)
	}
	ys, err := LoadScaler(filepath.Join(dir, yScalerFile))
	if err != nil {
		return nil, fmt.Errorf("output scaler: %w", err)
	}
	if xs.Width() != schema.Width() {
		return nil, fmt.Errorf("input scaler has %d columns, feature schema has %d", xs.Width(), schema.Width())
	}
	if ys.Width() != len(features.Targets) {
		return nil, fmt.Errorf("output scaler has %d columns, want %d targets", ys.Width(), len(features.Targets))
	}
	return &Artifacts{Schema: schema, XScaler: xs, YScaler: ys}, nil
}
