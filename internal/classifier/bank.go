package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/logging"
)

// Prediction is the outcome of one classifier run.
type Prediction struct {
	Feature       string    `json:"feature"`
	Letter        string    `json:"letter"`
	Label         string    `json:"label,omitempty"`
	Probabilities []float64 `json:"probabilities,omitempty"`
	Error         string    `json:"error,omitempty"`
}

type entry struct {
	spec Spec
	clf  Classifier
}

// Bank runs the classifier table.
type Bank struct {
	entries []entry
	logger  *logging.Logger
}

// NewBank pairs each Spec with the classifier of the same name. Every spec
// must be covered and each classifier's labels must match its spec exactly.
func NewBank(classifiers []Classifier) (*Bank, error) {
	byName := make(map[string]Classifier, len(classifiers))
	for _, c := range classifiers {
		byName[c.Name()] = c
	}

	b := &Bank{logger: logging.NewLogger("classifier")}
	var missing []string
	for _, spec := range Specs {
		c, ok := byName[spec.Feature]
		if !ok {
			missing = append(missing, spec.Feature)
			continue
		}
		if !sameLabels(c.Labels(), spec.Labels) {
			return nil, fmt.Errorf("classifier %s: labels %v, want %v", spec.Feature, c.Labels(), spec.Labels)
		}
		b.entries = append(b.entries, entry{spec: spec, clf: c})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing classifiers: %s", strings.Join(missing, ", "))
	}
	return b, nil
}

// Run executes every classifier whose letter has a tensor, in Specs order.
// Classifiers without a tensor are skipped and do not appear in the result.
func (b *Bank) Run(ctx context.Context, tensors map[rune]*imaging.Tensor) []Prediction {
	var out []Prediction
	for _, e := range b.entries {
		t, ok := tensors[e.spec.Letter]
		if !ok || t == nil {
			continue
		}
		p := Prediction{Feature: e.spec.Feature, Letter: string(e.spec.Letter)}
		label, probs, err := b.predict(ctx, e, t)
		if err != nil {
			b.logger.Warn("Classifier failed", "feature", e.spec.Feature, "error", err)
			p.Error = err.Error()
		} else {
			p.Label = label
			p.Probabilities = probs
		}
		out = append(out, p)
	}
	return out
}

// Classify runs the bank and returns the labels it produced. Failed or
// skipped classifiers leave their field empty.
func (b *Bank) Classify(ctx context.Context, tensors map[rune]*imaging.Tensor) features.Set {
	return Labels(b.Run(ctx, tensors))
}

// Labels collects the labels of the successful predictions.
func Labels(preds []Prediction) features.Set {
	var set features.Set
	for _, p := range preds {
		if p.Error == "" {
			set.Put(p.Feature, p.Label)
		}
	}
	return set
}

func (b *Bank) predict(ctx context.Context, e entry, t *imaging.Tensor) (label string, probs []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			label, probs = "", nil
			err = fmt.Errorf("classifier panicked: %v", r)
		}
	}()

	probs, err = e.clf.Predict(ctx, t)
	if err != nil {
		return "", nil, err
	}
	if len(probs) != len(e.spec.Labels) {
		return "", nil, fmt.Errorf("got %d probabilities, want %d", len(probs), len(e.spec.Labels))
	}
	i := Argmax(probs)
	if i < 0 {
		return "", nil, fmt.Errorf("no usable probability in %v", probs)
	}
	return e.spec.Labels[i], probs, nil
}
