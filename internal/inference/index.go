package inference

import (
	"context"
	"math"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/features"
)

// IndexDeriver turns pollutant concentrations into a composite index.
type IndexDeriver interface {
	Derive(ctx context.Context, ts time.Time, pollutants map[string]float64) (float64, error)
}

// SubIndex linearly maps 0..FullScale of Column onto 0..MaxIndex.
type SubIndex struct {
	Column    string
	FullScale float64
}

// MaxIndex is the upper bound of every sub-index.
const MaxIndex = 500

// DefaultSubIndices: PM10 0-250 ug/m3, PM2.5 0-60 ug/m3, NOx 0-200 ppb.
var DefaultSubIndices = []SubIndex{
	{Column: features.ColPM10, FullScale: 250},
	{Column: features.ColPM25, FullScale: 60},
	{Column: features.ColNOx, FullScale: 200},
}

// MaxSubIndex reports the worst pollutant's sub-index.
type MaxSubIndex struct {
	SubIndices []SubIndex
}

// Derive returns max over sub-indices, each capped at MaxIndex.
func (m MaxSubIndex) Derive(_ context.Context, _ time.Time, pollutants map[string]float64) (float64, error) {
	subs := m.SubIndices
	if len(subs) == 0 {
		subs = DefaultSubIndices
	}
	index := 0.0
	for i, s := range subs {
		v := math.Min(MaxIndex, pollutants[s.Column]/s.FullScale*MaxIndex)
		if i == 0 || v > index {
			index = v
		}
	}
	return index, nil
}
