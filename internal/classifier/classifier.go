package classifier

import (
	"context"
	"math"

	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// Classifier predicts a probability vector for one glyph tensor. The vector
// length must equal len(Labels()).
type Classifier interface {
	Name() string
	Labels() []string
	Predict(ctx context.Context, t *imaging.Tensor) ([]float64, error)
}

// Spec binds a feature to the letter it is read from and its label set.
type Spec struct {
	Feature string
	Letter  rune
	Labels  []string
}

// Specs is the fixed classifier table. Label order is significant: Argmax
// ties resolve to the earlier label.
var Specs = []Spec{
	{Feature: features.NameGLoop, Letter: 'g', Labels: []string{"absent", "balanced"}},
	{Feature: features.NameYLoop, Letter: 'y', Labels: []string{"absent", "balanced"}},
	{Feature: features.NameDHeight, Letter: 'd', Labels: []string{"normal", "tall"}},
	{Feature: features.NameDLoop, Letter: 'd', Labels: []string{"normal_loop", "wide_loop"}},
	{Feature: features.NameTHeight, Letter: 't', Labels: []string{"normal", "tall"}},
	{Feature: features.NameTBar, Letter: 't', Labels: []string{"normal_bar", "heavy_bar"}},
	{Feature: features.NameTLean, Letter: 't', Labels: []string{"normal_lean", "left_lean"}},
}

// SpecFor returns the spec for feature.
func SpecFor(feature string) (Spec, bool) {
	for _, s := range Specs {
		if s.Feature == feature {
			return s, true
		}
	}
	return Spec{}, false
}

// Argmax returns the index of the largest value, preferring the lowest index
// on exact ties. NaN values never win. It returns -1 if no value qualifies.
func Argmax(probs []float64) int {
	best := -1
	for i, p := range probs {
		if math.IsNaN(p) {
			continue
		}
		if best < 0 || p > probs[best] {
			best = i
		}
	}
	return best
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
