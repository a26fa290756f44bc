package analysis

import (
	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/scoring"
)

// Scores are the two rubric counters.
type Scores struct {
	Relapse  int `json:"relapse"`
	Recovery int `json:"recovery"`
}

// ResultDocument is the JSON form of one analysis. Either Error is set or the
// other three fields are.
type ResultDocument struct {
	Error      string        `json:"error,omitempty"`
	Prediction string        `json:"prediction,omitempty"`
	Scores     *Scores       `json:"scores,omitempty"`
	Features   *features.Set `json:"features,omitempty"`
}

// Document renders the outcome of Analyze. A non-nil err wins over res.
func Document(res *scoring.Result, err error) ResultDocument {
	if err != nil {
		return ResultDocument{Error: err.Error()}
	}
	if res == nil {
		return ResultDocument{Error: "no analysis result"}
	}
	feats := res.Features
	return ResultDocument{
		Prediction: res.Verdict,
		Scores:     &Scores{Relapse: res.Relapse, Recovery: res.Recovery},
		Features:   &feats,
	}
}

// Failed reports whether the document carries an error.
func (d ResultDocument) Failed() bool {
	return d.Error != ""
}
