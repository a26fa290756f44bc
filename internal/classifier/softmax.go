package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// SoftmaxModel is the on-disk form of a Softmax classifier.
type SoftmaxModel struct {
	Feature   string      `json:"feature"`
	Labels    []string    `json:"labels"`
	InputSize int         `json:"input_size"`
	Weights   [][]float32 `json:"weights"` // one row of InputSize*InputSize per label
	Bias      []float32   `json:"bias"`
}

// Softmax is a single linear layer followed by softmax over a flattened
// glyph tensor.
type Softmax struct {
	model SoftmaxModel
}

// NewSoftmax validates m against spec.
func NewSoftmax(spec Spec, m SoftmaxModel) (*Softmax, error) {
	if m.Feature != "" && m.Feature != spec.Feature {
		return nil, fmt.Errorf("model is for %q, want %q", m.Feature, spec.Feature)
	}
	m.Feature = spec.Feature
	if !sameLabels(m.Labels, spec.Labels) {
		return nil, fmt.Errorf("%s: labels %v, want %v", spec.Feature, m.Labels, spec.Labels)
	}
	if m.InputSize != imaging.GlyphSize {
		return nil, fmt.Errorf("%s: input_size %d, want %d", spec.Feature, m.InputSize, imaging.GlyphSize)
	}
	if len(m.Weights) != len(m.Labels) || len(m.Bias) != len(m.Labels) {
		return nil, fmt.Errorf("%s: %d weight rows and %d biases for %d labels",
			spec.Feature, len(m.Weights), len(m.Bias), len(m.Labels))
	}
	n := m.InputSize * m.InputSize
	for i, row := range m.Weights {
		if len(row) != n {
			return nil, fmt.Errorf("%s: weight row %d has %d values, want %d", spec.Feature, i, len(row), n)
		}
	}
	return &Softmax{model: m}, nil
}

// LoadSoftmax reads <dir>/<feature>.json.
func LoadSoftmax(dir string, spec Spec) (*Softmax, error) {
	path := filepath.Join(dir, spec.Feature+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var m SoftmaxModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	return NewSoftmax(spec, m)
}

// LoadSoftmaxBank loads every classifier in Specs from dir.
func LoadSoftmaxBank(dir string) (*Bank, error) {
	classifiers := make([]Classifier, 0, len(Specs))
	for _, spec := range Specs {
		c, err := LoadSoftmax(dir, spec)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, c)
	}
	return NewBank(classifiers)
}

// NeutralModel returns a zero-weight model whose bias always selects the
// feature's default label. It lets a deployment start before trained weights
// exist.
func NeutralModel(spec Spec) SoftmaxModel {
	n := imaging.GlyphSize * imaging.GlyphSize
	def, _ := features.Defaults.Get(spec.Feature)

	m := SoftmaxModel{
		Feature:   spec.Feature,
		Labels:    spec.Labels,
		InputSize: imaging.GlyphSize,
		Weights:   make([][]float32, len(spec.Labels)),
		Bias:      make([]float32, len(spec.Labels)),
	}
	for i, l := range spec.Labels {
		m.Weights[i] = make([]float32, n)
		if l == def {
			m.Bias[i] = 1
		}
	}
	return m
}

// SaveSoftmax writes m to <dir>/<feature>.json.
func SaveSoftmax(dir string, m SoftmaxModel) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model %s: %w", m.Feature, err)
	}
	path := filepath.Join(dir, m.Feature+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

func (s *Softmax) Name() string     { return s.model.Feature }
func (s *Softmax) Labels() []string { return s.model.Labels }

// Predict computes softmax(W·x + b).
func (s *Softmax) Predict(_ context.Context, t *imaging.Tensor) ([]float64, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tensor")
	}
	n := s.model.InputSize * s.model.InputSize
	if len(t.Data) != n {
		return nil, fmt.Errorf("tensor has %d values, want %d", len(t.Data), n)
	}

	logits := make([]float64, len(s.model.Labels))
	for i, row := range s.model.Weights {
		sum := float64(s.model.Bias[i])
		for j, w := range row {
			sum += float64(w) * float64(t.Data[j])
		}
		logits[i] = sum
	}
	return softmax(logits), nil
}

func softmax(logits []float64) []float64 {
	peak := math.Inf(-1)
	for _, v := range logits {
		if v > peak {
			peak = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
