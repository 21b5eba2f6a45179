package inference

import (
	"fmt"
	"math"
)

// Stages of the inference chain, reported in InferenceError.
const (
	StageScaleInput    = "scale_input"
	StagePredict       = "predict"
	StageUnscaleOutput = "unscale_output"
	StageInverseLog    = "inverse_log"
	StageDeriveIndex   = "derive_index"
)

// InferenceError wraps a failure anywhere in the model chain.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed at %s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Prediction is the model output for one entity step.
type Prediction struct {
	Pollutants map[string]float64 `json:"prediction"`
	Index      float64            `json:"aqi"`
	Category   string             `json:"aqi_category"`
}

// InverseLog undoes the log1p transform applied to targets at training time.
func InverseLog(v []float64) ([]float64, error) {
	out := make([]float64, len(v))
	for i, x := range v {
		y := math.Expm1(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("non-finite concentration at output %d", i)
		}
		out[i] = y
	}
	return out, nil
}

// Category maps an index value to its named band.
func Category(index float64) string {
	switch {
	case index <= 50:
		return "Good"
	case index <= 100:
		return "Satisfactory"
	case index <= 200:
		return "Moderately Polluted"
	case index <= 300:
		return "Poor"
	case index <= 400:
		return "Very Poor"
	default:
		return "Severe"
	}
}
