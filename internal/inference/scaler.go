package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scaler applies a fitted per-column transform and its inverse.
type Scaler interface {
	Transform(rows [][]float64) ([][]float64, error)
	Inverse(v []float64) ([]float64, error)
}

// AffineScaler computes x*Mul + Add per column. Both sklearn StandardScaler and
// MinMaxScaler reduce to this form.
type AffineScaler struct {
	Mul []float64
	Add []float64
}

// scalerFile is the exported parameter file of a fitted scaler.
type scalerFile struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
	Min   []float64 `json:"min"`
}

// LoadScaler reads a scaler parameter file.
func LoadScaler(path string) (*AffineScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	return ParseScaler(data)
}

// ParseScaler decodes {"kind":"standard","mean":[..],"scale":[..]} or
// {"kind":"minmax","min":[..],"scale":[..]}.
func ParseScaler(data []byte) (*AffineScaler, error) {
	var f scalerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}

	n := len(f.Scale)
	if n == 0 {
		return nil, fmt.Errorf("scaler has no scale values")
	}
	s := &AffineScaler{Mul: make([]float64, n), Add: make([]float64, n)}

	switch f.Kind {
	case "standard", "":
		if len(f.Mean) != n {
			return nil, fmt.Errorf("standard scaler: %d means for %d scales", len(f.Mean), n)
		}
		for i := range f.Scale {
			scale := f.Scale[i]
			if scale == 0 {
				scale = 1
			}
			s.Mul[i] = 1 / scale
			s.Add[i] = -f.Mean[i] / scale
		}
	case "minmax":
		if len(f.Min) != n {
			return nil, fmt.Errorf("minmax scaler: %d mins for %d scales", len(f.Min), n)
		}
		for i := range f.Scale {
			if f.Scale[i] == 0 {
				return nil, fmt.Errorf("minmax scaler: zero scale at column %d", i)
			}
			s.Mul[i] = f.Scale[i]
			s.Add[i] = f.Min[i]
		}
	default:
		return nil, fmt.Errorf("unknown scaler kind %q", f.Kind)
	}
	return s, nil
}

// Width is the number of columns the scaler was fitted on.
func (s *AffineScaler) Width() int {
	return len(s.Mul)
}

// Transform scales every row.
func (s *AffineScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Mul) {
			return nil, fmt.Errorf("row %d has %d columns, scaler expects %d", i, len(row), len(s.Mul))
		}
		scaled := make([]float64, len(row))
		for j, x := range row {
			scaled[j] = x*s.Mul[j] + s.Add[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// Inverse maps one scaled vector back to original units.
func (s *AffineScaler) Inverse(v []float64) ([]float64, error) {
	if len(v) != len(s.Mul) {
		return nil, fmt.Errorf("vector has %d values, scaler expects %d", len(v), len(s.Mul))
	}
	out := make([]float64, len(v))
	for i, y := range v {
		out[i] = (y - s.Add[i]) / s.Mul[i]
	}
	return out, nil
}

// Identity is a Scaler that returns its input unchanged.
type Identity struct{}

func (Identity) Transform(rows [][]float64) ([][]float64, error) { return rows, nil }
func (Identity) Inverse(v []float64) ([]float64, error)          { return v, nil }
