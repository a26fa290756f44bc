package features

import (
	"sort"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/ocr"
)

// Spacing labels.
const (
	SpacingVeryEven   = "very even"
	SpacingEven       = "even"
	SpacingUneven     = "uneven"
	SpacingVeryUneven = "very uneven"
)

// SpacingThresholds bucket the standard deviation of inter-word gaps. They
// must be strictly ascending.
type SpacingThresholds struct {
	VeryEven     float64 `json:"very_even_thresh"`
	SlightlyEven float64 `json:"slightly_even_thresh"`
	Uneven       float64 `json:"uneven_thresh"`
}

// Gaps returns the strictly positive horizontal gaps between adjacent words
// of every line, with words ordered by their left edge.
func Gaps(tr *ocr.Transcription) []float64 {
	if tr == nil {
		return nil
	}
	var gaps []float64
	for _, line := range tr.Lines {
		words := make([]ocr.Word, len(line.Words))
		copy(words, line.Words)
		sort.SliceStable(words, func(i, j int) bool {
			return words[i].Rect.Left < words[j].Rect.Left
		})
		for i := 0; i+1 < len(words); i++ {
			gap := words[i+1].Rect.Left - words[i].Rect.Right()
			if gap > 0 {
				gaps = append(gaps, float64(gap))
			}
		}
	}
	return gaps
}

// SpacingFromStdDev maps a gap standard deviation to a label. Each threshold
// is an exclusive upper bound.
func SpacingFromStdDev(stdev float64, th SpacingThresholds) string {
	switch {
	case stdev < th.VeryEven:
		return SpacingVeryEven
	case stdev < th.SlightlyEven:
		return SpacingEven
	case stdev < th.Uneven:
		return SpacingUneven
	default:
		return SpacingVeryUneven
	}
}

// Spacing labels the regularity of word spacing in tr. Fewer than two gaps
// are too little evidence and yield SpacingVeryEven; a nil transcription
// yields SpacingEven.
func Spacing(tr *ocr.Transcription, th SpacingThresholds) string {
	if tr == nil {
		return SpacingEven
	}
	gaps := Gaps(tr)
	if len(gaps) < 2 {
		return SpacingVeryEven
	}
	return SpacingFromStdDev(imaging.PopulationStdDev(gaps), th)
}
