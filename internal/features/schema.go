package features

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const lagMarker = "_lag"

// Lag describes a schema column holding Base delayed by Steps rows.
type Lag struct {
	Column string
	Base   string
	Steps  int
}

// Schema is the ordered list of input columns the regression model expects.
type Schema struct {
	Columns []string
	lags    []Lag
}

// NewSchema builds a schema and resolves its lag columns once.
func NewSchema(columns []string) Schema {
	s := Schema{Columns: append([]string(nil), columns...)}
	for _, c := range s.Columns {
		if lag, ok := ParseLag(c); ok {
			s.lags = append(s.lags, lag)
		}
	}
	return s
}

// Lags returns the lag columns in schema order.
func (s Schema) Lags() []Lag {
	return s.lags
}

// Width is the number of model input columns.
func (s Schema) Width() int {
	return len(s.Columns)
}

// ParseLag recognises columns named "<base>_lag<N>" with N >= 0.
func ParseLag(column string) (Lag, bool) {
	i := strings.LastIndex(column, lagMarker)
	if i <= 0 {
		return Lag{}, false
	}
	n, err := strconv.Atoi(column[i+len(lagMarker):])
	if err != nil || n < 0 {
		return Lag{}, false
	}
	return Lag{Column: column, Base: column[:i], Steps: n}, true
}

// ReadSchema reads one column name per line, skipping blank lines.
func ReadSchema(r io.Reader) (Schema, error) {
	var cols []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if c := strings.TrimSpace(sc.Text()); c != "" {
			cols = append(cols, c)
		}
	}
	if err := sc.Err(); err != nil {
		return Schema{}, err
	}
	if len(cols) == 0 {
		return Schema{}, fmt.Errorf("feature schema is empty")
	}
	return NewSchema(cols), nil
}

// LoadSchemaFile reads a feature column list from path.
func LoadSchemaFile(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return Schema{}, fmt.Errorf("open feature columns: %w", err)
	}
	defer f.Close()
	return ReadSchema(f)
}

// Matrix is a dense LOOKBACK x len(Columns) model input, oldest row first.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// Shape returns the row and column counts.
func (m Matrix) Shape() (int, int) {
	return len(m.Values), len(m.Columns)
}
