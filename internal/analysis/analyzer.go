// Package analysis runs the handwriting pipeline end to end: OCR, letter
// location, glyph classification, the pressure and spacing heuristics, and
// scoring.
//
// An Analyzer is built once from an explicit set of dependencies and is safe
// for concurrent use; nothing it holds is mutated after New.
package analysis

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/handwriting-tools-mcp/internal/classifier"
	"github.com/ironsheep/handwriting-tools-mcp/internal/config"
	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/glyph"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/logging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/ocr"
	"github.com/ironsheep/handwriting-tools-mcp/internal/scoring"
)

// Options bundles everything an Analyzer needs.
type Options struct {
	OCR        ocr.Engine
	Bank       *classifier.Bank
	Thresholds config.Thresholds
	Logger     *logging.Logger // optional
}

// Analyzer runs the pipeline.
type Analyzer struct {
	ocr        ocr.Engine
	bank       *classifier.Bank
	thresholds config.Thresholds
	logger     *logging.Logger
}

// New validates opts and builds an Analyzer.
func New(opts Options) (*Analyzer, error) {
	if opts.OCR == nil {
		return nil, fmt.Errorf("analysis: OCR engine is required")
	}
	if opts.Bank == nil {
		return nil, fmt.Errorf("analysis: classifier bank is required")
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("analysis")
	}
	return &Analyzer{
		ocr:        opts.OCR,
		bank:       opts.Bank,
		thresholds: opts.Thresholds,
		logger:     logger,
	}, nil
}

// Trace records the intermediate results of one analysis.
type Trace struct {
	Result        scoring.Result          `json:"result"`
	Transcription *ocr.Transcription      `json:"transcription"`
	Boxes         map[string]glyph.Box    `json:"boxes"`
	Predictions   []classifier.Prediction `json:"predictions"`
	Dropped       []string                `json:"dropped,omitempty"`
	Measured      features.Set            `json:"measured"`
}

// Analyze runs the pipeline on raw and returns the verdict. The only error it
// returns is an *ExtractionError; once OCR succeeds a complete result is
// always produced.
func (a *Analyzer) Analyze(ctx context.Context, raw imaging.RawImage) (*scoring.Result, error) {
	tr, err := a.Inspect(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &tr.Result, nil
}

// Inspect is Analyze with the intermediate stages kept.
func (a *Analyzer) Inspect(ctx context.Context, raw imaging.RawImage) (*Trace, error) {
	transcription, err := a.ocr.Recognize(ctx, raw)
	if err != nil {
		a.logger.Error("OCR failed", "file", raw.Filename, "engine", a.ocr.Name(), "error", err)
		return nil, &ExtractionError{Err: err}
	}
	a.logger.Debug("OCR complete", "file", raw.Filename, "words", transcription.WordCount())

	img, err := raw.Decode()
	if err != nil {
		// Pressure falls back to medium and no glyph is classified.
		a.logger.Warn("Sample could not be decoded", "file", raw.Filename, "error", err)
	}

	boxes := glyph.Locate(transcription)
	tensors, dropped := a.prepareGlyphs(img, boxes)

	preds := a.bank.Run(ctx, tensors)
	measured := classifier.Labels(preds)
	measured.Pressure = features.Pressure(img, a.thresholds.Pressure)
	measured.Spacing = features.Spacing(transcription, a.thresholds.Spacing)

	if missing := measured.Missing(); len(missing) > 0 {
		a.logger.Debug("Defaulting features", "file", raw.Filename, "missing", missing)
	}

	res := scoring.Score(measured)
	a.logger.Info("Analysis complete", "file", raw.Filename, "prediction", res.Verdict,
		"relapse", res.Relapse, "recovery", res.Recovery)

	out := &Trace{
		Result:        res,
		Transcription: transcription,
		Boxes:         make(map[string]glyph.Box, len(boxes)),
		Predictions:   preds,
		Dropped:       dropped,
		Measured:      measured,
	}
	for letter, box := range boxes {
		out.Boxes[string(letter)] = box
	}
	return out, nil
}

// prepareGlyphs crops and preprocesses each located letter. Letters that fail
// either step are reported in dropped, sorted.
func (a *Analyzer) prepareGlyphs(img image.Image, boxes map[rune]glyph.Box) (map[rune]*imaging.Tensor, []string) {
	tensors := make(map[rune]*imaging.Tensor, len(boxes))
	var dropped []string
	if img == nil {
		for letter := range boxes {
			dropped = append(dropped, string(letter))
		}
		sort.Strings(dropped)
		return tensors, dropped
	}

	for letter, box := range boxes {
		crop, err := glyph.Crop(img, box)
		if err != nil {
			a.logger.Warn("Glyph crop failed", "letter", string(letter), "box", box, "error", err)
			dropped = append(dropped, string(letter))
			continue
		}
		t, err := imaging.Preprocess(crop)
		if err != nil {
			a.logger.Warn("Glyph preprocessing failed", "letter", string(letter), "error", err)
			dropped = append(dropped, string(letter))
			continue
		}
		tensors[letter] = t
	}
	sort.Strings(dropped)
	return tensors, dropped
}
