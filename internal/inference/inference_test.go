package inference

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/features"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		index float64
		want  string
	}{
		{0, "Good"},
		{50, "Good"},
		{50.5, "Satisfactory"},
		{100, "Satisfactory"},
		{100.01, "Moderately Polluted"},
		{200, "Moderately Polluted"},
		{250, "Poor"},
		{300, "Poor"},
		{301, "Very Poor"},
		{400, "Very Poor"},
		{400.1, "Severe"},
		{500, "Severe"},
	}
	for _, tt := range tests {
		if got := Category(tt.index); got != tt.want {
			t.Errorf("Category(%v) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestMaxSubIndex(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := MaxSubIndex{}.Derive(ctx, ts, map[string]float64{
		features.ColPM10: 50,  // 100
		features.ColPM25: 6,   // 50
		features.ColNOx:  100, // 250
	})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-250) > 1e-9 {
		t.Fatalf("index = %v, want 250", got)
	}

	got, _ = MaxSubIndex{}.Derive(ctx, ts, map[string]float64{features.ColPM25: 600})
	if got != MaxIndex {
		t.Fatalf("index = %v, want capped %v", got, float64(MaxIndex))
	}
}

func TestParseScaler(t *testing.T) {
	std, err := ParseScaler([]byte(`{"kind":"standard","mean":[10, 0],"scale":[2, 0]}`))
	if err != nil {
		t.Fatal(err)
	}
	rows, err := std.Transform([][]float64{{14, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != 2 || rows[0][1] != 3 {
		t.Fatalf("standard transform = %v, want [2 3]", rows[0])
	}
	back, _ := std.Inverse(rows[0])
	if math.Abs(back[0]-14) > 1e-9 || math.Abs(back[1]-3) > 1e-9 {
		t.Fatalf("standard inverse = %v", back)
	}

	mm, err := ParseScaler([]byte(`{"kind":"minmax","min":[-0.5],"scale":[0.25]}`))
	if err != nil {
		t.Fatal(err)
	}
	rows, _ = mm.Transform([][]float64{{6}})
	if rows[0][0] != 1 {
		t.Fatalf("minmax transform = %v, want 1", rows[0][0])
	}

	if _, err := std.Transform([][]float64{{1}}); err == nil {
		t.Fatal("expected width mismatch error")
	}
	if _, err := ParseScaler([]byte(`{"kind":"robust","scale":[1]}`)); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

type stubModel struct {
	out []float64
	err error
	got [][]float64
}

func (m *stubModel) Predict(_ context.Context, window [][]float64) ([]float64, error) {
	m.got = window
	return m.out, m.err
}

func TestAdapterPredict(t *testing.T) {
	model := &stubModel{out: []float64{math.Log1p(40), math.Log1p(6), math.Log1p(20)}}
	a := &Adapter{XScaler: Identity{}, YScaler: Identity{}, Model: model, Index: MaxSubIndex{}}

	x := features.Matrix{Columns: []string{"a"}, Values: [][]float64{{1}, {2}}}
	p, err := a.Predict(context.Background(), time.Now(), x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p.Pollutants[features.ColPM10]-40) > 1e-9 {
		t.Fatalf("PM10 = %v, want 40", p.Pollutants[features.ColPM10])
	}
	if math.Abs(p.Index-80) > 1e-9 || p.Category != "Satisfactory" {
		t.Fatalf("index = %v (%s), want 80 Satisfactory", p.Index, p.Category)
	}
	if len(model.got) != 2 {
		t.Fatalf("model received %d rows", len(model.got))
	}
}

func TestAdapterErrorsNameStage(t *testing.T) {
	x := features.Matrix{Columns: []string{"a"}, Values: [][]float64{{1}}}

	tests := []struct {
		name  string
		a     *Adapter
		stage string
	}{
		{
			name:  "model failure",
			a:     &Adapter{XScaler: Identity{}, YScaler: Identity{}, Model: &stubModel{err: errors.New("boom")}, Index: MaxSubIndex{}},
			stage: StagePredict,
		},
		{
			name:  "short output",
			a:     &Adapter{XScaler: Identity{}, YScaler: Identity{}, Model: &stubModel{out: []float64{1}}, Index: MaxSubIndex{}},
			stage: StagePredict,
		},
		{
			name:  "scaler width",
			a:     &Adapter{XScaler: &AffineScaler{Mul: []float64{1, 1}, Add: []float64{0, 0}}, YScaler: Identity{}, Model: &stubModel{}, Index: MaxSubIndex{}},
			stage: StageScaleInput,
		},
		{
			name:  "overflow",
			a:     &Adapter{XScaler: Identity{}, YScaler: Identity{}, Model: &stubModel{out: []float64{1e6, 1, 1}}, Index: MaxSubIndex{}},
			stage: StageInverseLog,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.a.Predict(context.Background(), time.Now(), x)
			var ie *InferenceError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InferenceError, got %v", err)
			}
			if ie.Stage != tt.stage {
				t.Fatalf("stage = %s, want %s", ie.Stage, tt.stage)
			}
		})
	}
}

func TestHTTPModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/models/aq_lstm:predict" {
			http.NotFound(w, r)
			return
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Instances) != 1 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		sum := 0.0
		for _, row := range req.Instances[0] {
			for _, v := range row {
				sum += v
			}
		}
		json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float64{{sum, 0, 0}}})
	}))
	defer srv.Close()

	m := NewHTTPModel(srv.Client(), srv.URL+"/", "aq_lstm")
	out, err := m.Predict(context.Background(), [][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 || out[0] != 10 {
		t.Fatalf("prediction = %v", out)
	}

	bad := NewHTTPModel(srv.Client(), srv.URL, "missing")
	if _, err := bad.Predict(context.Background(), [][]float64{{1}}); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestLoadArtifacts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("cols.txt", "Temp_AGRABAD\nPM10_AGRABAD_lag1\n")
	write("x.json", `{"kind":"standard","mean":[0,0],"scale":[1,1]}`)
	write("y.json", `{"kind":"standard","mean":[0,0,0],"scale":[1,1,1]}`)
	write("y_bad.json", `{"kind":"standard","mean":[0],"scale":[1]}`)

	art, err := LoadArtifacts(dir, "cols.txt", "x.json", "y.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Schema.Width() != 2 || len(art.Schema.Lags()) != 1 {
		t.Fatalf("schema = %+v", art.Schema)
	}

	if _, err := LoadArtifacts(dir, "cols.txt", "x.json", "y_bad.json"); err == nil {
		t.Fatal("expected target width mismatch")
	}
}
