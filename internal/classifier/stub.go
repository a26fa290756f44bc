package classifier

import (
	"context"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// Fixed is a Classifier that always returns the same vector, or Err if set.
type Fixed struct {
	Feature string
	Names   []string
	Vector  []float64
	Err     error
}

func (f *Fixed) Name() string     { return f.Feature }
func (f *Fixed) Labels() []string { return f.Names }

func (f *Fixed) Predict(_ context.Context, _ *imaging.Tensor) ([]float64, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]float64, len(f.Vector))
	copy(out, f.Vector)
	return out, nil
}

// NewFixedBank builds a Bank of Fixed classifiers. A feature missing from
// labels gets the first label of its spec.
func NewFixedBank(labels map[string]string) *Bank {
	classifiers := make([]Classifier, 0, len(Specs))
	for _, spec := range Specs {
		vec := make([]float64, len(spec.Labels))
		vec[0] = 1
		if want, ok := labels[spec.Feature]; ok {
			for i, l := range spec.Labels {
				if l == want {
					vec = make([]float64, len(spec.Labels))
					vec[i] = 1
				}
			}
		}
		classifiers = append(classifiers, &Fixed{Feature: spec.Feature, Names: spec.Labels, Vector: vec})
	}
	b, err := NewBank(classifiers)
	if err != nil {
		// Specs and the classifiers above are built from the same table.
		panic(err)
	}
	return b
}
