// Package scoring fuses a feature record into a relapse-risk verdict.
package scoring

import (
	"math"

	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
)

// Verdicts.
const (
	VerdictRelapse      = "Relapse Risk"
	VerdictRecovery     = "Recovery"
	VerdictInconclusive = "Inconclusive"
)

// Result is the outcome of Score. Features is always complete.
type Result struct {
	Relapse  int          `json:"relapse"`
	Recovery int          `json:"recovery"`
	Verdict  string       `json:"prediction"`
	Features features.Set `json:"features"`
}

type rule struct {
	feature string
	values  []string
	relapse bool
}

// rubric rules are independent; every matching rule adds one point.
var rubric = []rule{
	{features.NamePressure, []string{features.PressureLight, features.PressureHeavy}, true},
	{features.NamePressure, []string{features.PressureMedium}, false},
	{features.NameSpacing, []string{features.SpacingUneven, features.SpacingVeryUneven}, true},
	{features.NameSpacing, []string{features.SpacingEven, features.SpacingVeryEven}, false},
	{features.NameGLoop, []string{"absent"}, true},
	{features.NameGLoop, []string{"balanced"}, false},
	{features.NameYLoop, []string{"absent"}, true},
	{features.NameYLoop, []string{"balanced"}, false},
	{features.NameDHeight, []string{"tall"}, true},
	{features.NameTHeight, []string{"tall"}, true},
	{features.NameDLoop, []string{"wide_loop"}, true},
	{features.NameTLean, []string{"left_lean"}, true},
	{features.NameTBar, []string{"heavy_bar"}, true},
	{features.NameTBar, []string{"normal_bar"}, false},
}

// Score default-fills set and applies the rubric.
func Score(set features.Set) Result {
	filled := set.Fill()
	res := Result{Features: filled}

	for _, r := range rubric {
		v, _ := filled.Get(r.feature)
		if !contains(r.values, v) {
			continue
		}
		if r.relapse {
			res.Relapse++
		} else {
			res.Recovery++
		}
	}

	res.Verdict = Verdict(res.Relapse, res.Recovery)
	return res
}

// Verdict compares the two counters.
func Verdict(relapse, recovery int) string {
	switch {
	case relapse > recovery:
		return VerdictRelapse
	case recovery > relapse:
		return VerdictRecovery
	default:
		return VerdictInconclusive
	}
}

// Confidence is the winning counter's share of all points as a percentage,
// rounded to one decimal. With no points at all it is 50.
func Confidence(relapse, recovery int) float64 {
	total := relapse + recovery
	if total <= 0 {
		return 50
	}
	top := relapse
	if recovery > top {
		top = recovery
	}
	return math.Round(float64(top)/float64(total)*1000) / 10
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
