package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// Remote is a Classifier served by TensorFlow Serving's REST API. The model
// name on the server equals the feature name.
type Remote struct {
	spec       Spec
	baseURL    string
	httpClient *http.Client
}

// NewRemote creates a classifier for spec against baseURL, e.g.
// "http://localhost:8501".
func NewRemote(spec Spec, baseURL string, httpClient *http.Client) *Remote {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Remote{spec: spec, baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// NewRemoteBank creates one Remote per spec and verifies each model reports
// an AVAILABLE version.
func NewRemoteBank(ctx context.Context, baseURL string, httpClient *http.Client) (*Bank, error) {
	classifiers := make([]Classifier, 0, len(Specs))
	for _, spec := range Specs {
		r := NewRemote(spec, baseURL, httpClient)
		if err := r.CheckAvailable(ctx); err != nil {
			return nil, err
		}
		classifiers = append(classifiers, r)
	}
	return NewBank(classifiers)
}

func (r *Remote) Name() string     { return r.spec.Feature }
func (r *Remote) Labels() []string { return r.spec.Labels }

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

// Predict posts the tensor as a single instance.
func (r *Remote) Predict(ctx context.Context, t *imaging.Tensor) ([]float64, error) {
	if t == nil || len(t.Shape) != 4 {
		return nil, fmt.Errorf("tensor must have shape [1,h,w,c]")
	}
	body, err := json.Marshal(predictRequest{Instances: [][][][]float32{t.Instance()}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", r.baseURL, r.spec.Feature)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp predictResponse
	if err := r.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("model %s: %s", r.spec.Feature, resp.Error)
	}
	if len(resp.Predictions) != 1 {
		return nil, fmt.Errorf("model %s returned %d predictions, want 1", r.spec.Feature, len(resp.Predictions))
	}
	return resp.Predictions[0], nil
}

type modelStatus struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

// CheckAvailable queries the model status endpoint.
func (r *Remote) CheckAvailable(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/models/%s", r.baseURL, r.spec.Feature)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	var status modelStatus
	if err := r.do(req, &status); err != nil {
		return err
	}
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %s has no AVAILABLE version", r.spec.Feature)
}

func (r *Remote) do(req *http.Request, out interface{}) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model %s: request failed: %w", r.spec.Feature, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("model %s: failed to read response: %w", r.spec.Feature, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model %s: status %d: %s", r.spec.Feature, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("model %s: invalid response: %w", r.spec.Feature, err)
	}
	return nil
}
