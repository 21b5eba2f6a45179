package pipeline

import (
	"github.com/i474232898/air-quality-forecast/internal/features"
)

// Normalize returns exactly n independent rows: the most recent n of buf when it is too
// long, or buf left-padded with copies of current when it is too short. It never fails.
func Normalize(buf []features.Row, current features.Row, n int) []features.Row {
	if len(buf) > n {
		buf = buf[len(buf)-n:]
	}
	out := make([]features.Row, 0, n)
	for i := len(buf); i < n; i++ {
		out = append(out, current.Clone())
	}
	for _, row := range buf {
		if row == nil {
			row = current
		}
		out = append(out, row.Clone())
	}
	return out
}

// Slide drops the oldest row and appends current as the newest.
func Slide(buf []features.Row, current features.Row) []features.Row {
	if len(buf) == 0 {
		return []features.Row{current.Clone()}
	}
	out := make([]features.Row, 0, len(buf))
	out = append(out, buf[1:]...)
	return append(out, current.Clone())
}

// EnsureColumns sets every missing column in every row to 0.
func EnsureColumns(buf []features.Row, columns []string) {
	for _, row := range buf {
		for _, c := range columns {
			if _, ok := row[c]; !ok {
				row[c] = 0
			}
		}
	}
}

// ApplyFeedback overwrites the newest row's target columns with the last predicted
// values. Targets with no prediction yet become 0.
func ApplyFeedback(buf []features.Row, last map[string]float64, targets []string) {
	if len(buf) == 0 {
		return
	}
	newest := buf[len(buf)-1]
	for _, t := range targets {
		newest[t] = last[t]
	}
}

// StripDerived removes schema lag columns from rows; they are recomputed on every run.
func StripDerived(buf []features.Row, schema features.Schema) {
	for _, lag := range schema.Lags() {
		for _, row := range buf {
			delete(row, lag.Column)
		}
	}
}

// Assemble lays buf out in schema column order. A lag column takes its base value from
// Steps rows earlier, or 0 when that row is before the window. Columns a row does not
// carry are 0.
func Assemble(buf []features.Row, schema features.Schema) features.Matrix {
	lagOf := make(map[string]features.Lag, len(schema.Lags()))
	for _, lag := range schema.Lags() {
		lagOf[lag.Column] = lag
	}

	values := make([][]float64, len(buf))
	for i := range buf {
		vec := make([]float64, schema.Width())
		for j, col := range schema.Columns {
			if lag, ok := lagOf[col]; ok {
				if src := i - lag.Steps; src >= 0 {
					vec[j] = buf[src][lag.Base]
				}
				continue
			}
			vec[j] = buf[i][col]
		}
		values[i] = vec
	}

	return features.Matrix{
		Columns: append([]string(nil), schema.Columns...),
		Values:  values,
	}
}

// Window runs the buffer steps for one call: normalize the prior buffer, slide in
// current, ensure pollutant columns, feed back last predictions into the newest row and
// assemble the model matrix. It returns the buffer to persist and the matrix.
func Window(prior []features.Row, current features.Row, last map[string]float64, schema features.Schema) ([]features.Row, features.Matrix) {
	buf := Normalize(prior, current, features.Lookback)
	StripDerived(buf, schema)
	buf = Slide(buf, current)
	EnsureColumns(buf, features.Targets)
	ApplyFeedback(buf, last, features.Targets)
	return buf, Assemble(buf, schema)
}
