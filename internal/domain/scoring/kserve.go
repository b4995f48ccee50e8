package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultKServeTimeout = 30 * time.Second

// KServeOption configures a KServePredictor.
type KServeOption func(*KServePredictor)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) KServeOption {
	return func(p *KServePredictor) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout bounds every predict call.
func WithTimeout(d time.Duration) KServeOption {
	return func(p *KServePredictor) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// WithFeatureNames declares the served model's input columns so the Scorer
// can validate uploads before calling out.
func WithFeatureNames(names ...string) KServeOption {
	return func(p *KServePredictor) {
		p.features = append([]string(nil), names...)
	}
}

// WithVersion names the served model revision.
func WithVersion(v string) KServeOption {
	return func(p *KServePredictor) { p.version = v }
}

// KServePredictor calls a model served behind the KServe v1 REST protocol:
// POST {endpoint}/v1/models/{name}:predict with {"instances": rows} and a
// {"predictions": [...]} response.
type KServePredictor struct {
	endpoint string
	name     string
	version  string
	features []string
	client   *http.Client
}

// NewKServePredictor builds a predictor for the model name served at endpoint.
func NewKServePredictor(endpoint, name string, opts ...KServeOption) *KServePredictor {
	p := &KServePredictor{
		endpoint: strings.TrimRight(endpoint, "/"),
		name:     name,
		client:   &http.Client{Timeout: defaultKServeTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FeatureNames implements Schema. It returns nil when no names were declared,
// in which case the Scorer forwards the upload's columns unchecked.
func (p *KServePredictor) FeatureNames() []string {
	if len(p.features) == 0 {
		return nil
	}
	return append([]string(nil), p.features...)
}

// ModelVersion implements Versioned.
func (p *KServePredictor) ModelVersion() string {
	if p.version == "" {
		return p.name
	}
	return p.name + "@" + p.version
}

type kserveRequest struct {
	Instances [][]float64 `json:"instances"`
}

type kserveResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
}

// Predict implements Predictor.
func (p *KServePredictor) Predict(ctx context.Context, f Features) ([]float64, error) {
	body, err := json.Marshal(kserveRequest{Instances: f.Rows})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrPredict, err)
	}
	url := fmt.Sprintf("%s/v1/models/%s:predict", p.endpoint, p.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrPredict, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredict, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrPredict, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrPredict, resp.StatusCode, truncate(raw, 256))
	}

	var out kserveResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrPredict, err)
	}
	preds := make([]float64, len(out.Predictions))
	for i, item := range out.Predictions {
		v, err := scalar(item)
		if err != nil {
			return nil, fmt.Errorf("%w: prediction %d: %w", ErrPredict, i, err)
		}
		preds[i] = v
	}
	return preds, nil
}

// scalar accepts a bare number or a single-element array, which regressors
// served by sklearn and tensorflow runtimes return respectively.
func scalar(raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err != nil {
		return 0, err
	}
	if len(arr) != 1 {
		return 0, fmt.Errorf("expected one value, got %d", len(arr))
	}
	return arr[0], nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
