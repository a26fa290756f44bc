package analysis

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/handwriting-tools-mcp/internal/classifier"
	"github.com/ironsheep/handwriting-tools-mcp/internal/config"
	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/ocr"
	"github.com/ironsheep/handwriting-tools-mcp/internal/scoring"
)

type stubEngine struct {
	tr    *ocr.Transcription
	err   error
	calls int
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(_ context.Context, _ imaging.RawImage) (*ocr.Transcription, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tr, nil
}

type countingClassifier struct {
	classifier.Classifier
	calls *atomic.Int32
}

func (c countingClassifier) Predict(ctx context.Context, t *imaging.Tensor) ([]float64, error) {
	c.calls.Add(1)
	return c.Classifier.Predict(ctx, t)
}

// countingBank returns a bank whose classifiers answer with labels (first
// label when absent) and fail for the features in failing.
func countingBank(t *testing.T, labels map[string]string, failing ...string) (*classifier.Bank, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	var clfs []classifier.Classifier
	for _, spec := range classifier.Specs {
		vec := make([]float64, len(spec.Labels))
		vec[0] = 1
		for i, l := range spec.Labels {
			if l == labels[spec.Feature] {
				vec = make([]float64, len(spec.Labels))
				vec[i] = 1
			}
		}
		fixed := &classifier.Fixed{Feature: spec.Feature, Names: spec.Labels, Vector: vec}
		for _, f := range failing {
			if f == spec.Feature {
				fixed.Err = errors.New("model unavailable")
			}
		}
		clfs = append(clfs, countingClassifier{Classifier: fixed, calls: calls})
	}
	bank, err := classifier.NewBank(clfs)
	require.NoError(t, err)
	return bank, calls
}

func solidPNG(t *testing.T, w, h int, c color.Color) imaging.RawImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imaging.NewRawImage(buf.Bytes(), "sample.png")
}

func word(text string, left, width int) ocr.Word {
	return ocr.Word{Text: text, Rect: ocr.Rect{Left: left, Top: 10, Width: width, Height: 30}}
}

// allLetters has one word per classified letter and gaps [10, 100, 5].
func allLetters() *ocr.Transcription {
	return &ocr.Transcription{Lines: []ocr.Line{{Words: []ocr.Word{
		word("good", 0, 40),
		word("day", 50, 30),
		word("yet", 180, 30),
		word("the", 215, 30),
	}}}}
}

func newAnalyzer(t *testing.T, eng ocr.Engine, bank *classifier.Bank) *Analyzer {
	t.Helper()
	a, err := New(Options{OCR: eng, Bank: bank, Thresholds: config.DefaultThresholds})
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	bank, _ := countingBank(t, nil)
	eng := &stubEngine{tr: &ocr.Transcription{}}

	_, err := New(Options{Bank: bank, Thresholds: config.DefaultThresholds})
	assert.Error(t, err)

	_, err = New(Options{OCR: eng, Thresholds: config.DefaultThresholds})
	assert.Error(t, err)

	bad := config.DefaultThresholds
	bad.Pressure.Low, bad.Pressure.High = 200, 100
	_, err = New(Options{OCR: eng, Bank: bank, Thresholds: bad})
	assert.Error(t, err)
}

// Dark sample, no target letters: only pressure is measured away from the
// defaults and the verdict is Recovery.
func TestAnalyze_HeavyPressureRecovery(t *testing.T) {
	bank, calls := countingBank(t, nil)
	eng := &stubEngine{tr: &ocr.Transcription{Lines: []ocr.Line{{Words: []ocr.Word{word("hi", 0, 20)}}}}}
	a := newAnalyzer(t, eng, bank)

	raw := solidPNG(t, 64, 64, color.Gray{Y: 100})
	res, err := a.Analyze(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, features.PressureHeavy, res.Features.Pressure)
	assert.Equal(t, features.SpacingVeryEven, res.Features.Spacing)
	assert.Equal(t, 1, res.Relapse)
	assert.Equal(t, 4, res.Recovery)
	assert.Equal(t, scoring.VerdictRecovery, res.Verdict)
	assert.Zero(t, calls.Load(), "no glyph means no classifier runs")
}

func TestAnalyze_AllRelapseSignals(t *testing.T) {
	bank, calls := countingBank(t, map[string]string{
		features.NameGLoop:   "absent",
		features.NameYLoop:   "absent",
		features.NameDHeight: "tall",
		features.NameDLoop:   "wide_loop",
		features.NameTHeight: "tall",
		features.NameTBar:    "heavy_bar",
		features.NameTLean:   "left_lean",
	})
	a := newAnalyzer(t, &stubEngine{tr: allLetters()}, bank)

	trace, err := a.Inspect(context.Background(), solidPNG(t, 300, 60, color.White))
	require.NoError(t, err)

	res := trace.Result
	assert.Equal(t, features.PressureLight, res.Features.Pressure)
	assert.Equal(t, features.SpacingVeryUneven, res.Features.Spacing)
	assert.Equal(t, 9, res.Relapse)
	assert.Equal(t, 0, res.Recovery)
	assert.Equal(t, scoring.VerdictRelapse, res.Verdict)
	assert.Equal(t, int32(7), calls.Load())
	assert.Len(t, trace.Predictions, 7)
	assert.ElementsMatch(t, []string{"g", "d", "y", "t"}, keys(trace.Boxes))
	assert.Empty(t, trace.Dropped)
}

func TestAnalyze_OCRFailureAbortsBeforeClassifiers(t *testing.T) {
	bank, calls := countingBank(t, nil)
	eng := &stubEngine{err: &ocr.ErrProcessing{Message: "Unable to recognize the file type"}}
	a := newAnalyzer(t, eng, bank)

	res, err := a.Analyze(context.Background(), solidPNG(t, 32, 32, color.White))
	require.Error(t, err)
	assert.Nil(t, res)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	var processing *ocr.ErrProcessing
	assert.ErrorAs(t, err, &processing)
	assert.Zero(t, calls.Load())

	doc := Document(res, err)
	assert.True(t, doc.Failed())
	assert.Contains(t, doc.Error, "Unable to recognize the file type")
	assert.Nil(t, doc.Scores)
}

func TestAnalyze_UndecodableImage(t *testing.T) {
	bank, calls := countingBank(t, nil)
	a := newAnalyzer(t, &stubEngine{tr: allLetters()}, bank)

	raw := imaging.NewRawImage([]byte("definitely not an image"), "broken.png")
	trace, err := a.Inspect(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, features.PressureMedium, trace.Result.Features.Pressure)
	assert.Equal(t, features.SpacingVeryUneven, trace.Result.Features.Spacing)
	assert.Equal(t, []string{"d", "g", "t", "y"}, trace.Dropped)
	assert.Zero(t, calls.Load())
	assert.Empty(t, trace.Result.Features.Missing())
}

func TestAnalyze_FailingClassifierIsIsolated(t *testing.T) {
	bank, calls := countingBank(t, map[string]string{
		features.NameTBar:  "heavy_bar",
		features.NameTLean: "left_lean",
	}, features.NameTLean)
	a := newAnalyzer(t, &stubEngine{tr: allLetters()}, bank)

	trace, err := a.Inspect(context.Background(), solidPNG(t, 300, 60, color.White))
	require.NoError(t, err)

	assert.Equal(t, int32(7), calls.Load())
	assert.Empty(t, trace.Measured.TLean)
	assert.Equal(t, "normal_lean", trace.Result.Features.TLean)
	assert.Equal(t, "heavy_bar", trace.Result.Features.TBar)
}

func TestAnalyze_LetterEIsNotClassified(t *testing.T) {
	bank, calls := countingBank(t, nil)
	eng := &stubEngine{tr: &ocr.Transcription{Lines: []ocr.Line{{Words: []ocr.Word{word("eel", 5, 30)}}}}}
	a := newAnalyzer(t, eng, bank)

	trace, err := a.Inspect(context.Background(), solidPNG(t, 100, 60, color.White))
	require.NoError(t, err)

	assert.Contains(t, trace.Boxes, "e")
	assert.Empty(t, trace.Predictions)
	assert.Zero(t, calls.Load())
}

// rotatedJPEG encodes a w x h image, dark on the left half, with an EXIF
// Orientation tag of 6 (rotate 90 degrees clockwise on display).
func rotatedJPEG(t *testing.T, w, h int) imaging.RawImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, img, &jpeg.Options{Quality: 95}))
	jpg := enc.Bytes()

	var app1 bytes.Buffer
	app1.WriteString("Exif\x00\x00MM")
	for _, v := range []interface{}{
		uint16(42), uint32(8), uint16(1),
		uint16(0x0112), uint16(3), uint32(1), uint16(6), uint16(0),
		uint32(0),
	} {
		require.NoError(t, binary.Write(&app1, binary.BigEndian, v))
	}

	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xFF, 0xE1})
	require.NoError(t, binary.Write(&out, binary.BigEndian, uint16(app1.Len()+2)))
	out.Write(app1.Bytes())
	out.Write(jpg[2:])
	return imaging.NewRawImage(out.Bytes(), "phone.jpg")
}

// Word boxes are in stored pixel coordinates, so a glyph on the right half of
// a rotated phone photo must still be cropped from the right half.
func TestAnalyze_OrientedJPEGUsesStoredCoordinates(t *testing.T) {
	bank, calls := countingBank(t, nil)
	tr := &ocr.Transcription{Lines: []ocr.Line{{Words: []ocr.Word{
		{Text: "the", Rect: ocr.Rect{Left: 20, Top: 0, Width: 20, Height: 20}},
	}}}}
	a := newAnalyzer(t, &stubEngine{tr: tr}, bank)

	trace, err := a.Inspect(context.Background(), rotatedJPEG(t, 40, 20))
	require.NoError(t, err)

	assert.NotContains(t, trace.Dropped, "t")
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "normal", trace.Measured.THeight)
}

func TestAnalyze_OutOfBoundsGlyphIsDropped(t *testing.T) {
	bank, _ := countingBank(t, nil)
	tr := &ocr.Transcription{Lines: []ocr.Line{{Words: []ocr.Word{
		{Text: "go", Rect: ocr.Rect{Left: 500, Top: 500, Width: 20, Height: 20}},
	}}}}
	a := newAnalyzer(t, &stubEngine{tr: tr}, bank)

	trace, err := a.Inspect(context.Background(), solidPNG(t, 50, 50, color.White))
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, trace.Dropped)
	assert.Empty(t, trace.Predictions)
}

func TestDocument(t *testing.T) {
	res := scoring.Score(features.Set{})
	doc := Document(&res, nil)
	assert.False(t, doc.Failed())

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, scoring.VerdictRecovery, decoded["prediction"])
	assert.NotContains(t, decoded, "error")
	assert.Equal(t, map[string]interface{}{"relapse": 0.0, "recovery": 5.0}, decoded["scores"])
	feats, ok := decoded["features"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, feats, len(features.Names))

	failed, err := json.Marshal(Document(nil, errors.New("boom")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(failed))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
