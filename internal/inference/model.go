package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-forecast/internal/resilience"
)

// Model is the sequence regression model: one scaled window in, one scaled vector out.
type Model interface {
	Predict(ctx context.Context, window [][]float64) ([]float64, error)
}

// HTTPModel calls a TensorFlow-Serving style REST endpoint.
type HTTPModel struct {
	endpoint string
	httpCfg  resilience.HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

// NewHTTPModel targets POST {baseURL}/v1/models/{name}:predict.
func NewHTTPModel(client *http.Client, baseURL, name string) *HTTPModel {
	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimRight(baseURL, "/"), url.PathEscape(name))
	return &HTTPModel{
		endpoint: endpoint,
		httpCfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff,
		},
		circuit: resilience.NewBreaker("model"),
	}
}

// Predict sends one window as a single instance and returns its first prediction.
func (m *HTTPModel) Predict(ctx context.Context, window [][]float64) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][][]float64{window}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model request: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, m.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := resilience.Do(ctx, m.httpCfg, m.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("model service request failed: %w", err)
	}
	defer resp.Body.Close()

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("model service error: %s", out.Error)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("model service returned no predictions")
	}
	return out.Predictions[0], nil
}
