package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// TesseractEngine implements Engine with a local Tesseract install.
type TesseractEngine struct {
	language      string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine creates an engine for the given Tesseract language code.
// An empty language means "eng".
func NewTesseractEngine(language string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{language: language, clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Version returns the linked Tesseract version.
func (e *TesseractEngine) Version() string {
	c := e.clientFactory()
	defer c.Close()
	return c.Version()
}

// Recognize runs Tesseract over the raw bytes and groups words by the
// block, paragraph, and line numbers Tesseract reports.
//
// Tesseract is not interruptible; ctx is only checked before work starts.
func (e *TesseractEngine) Recognize(ctx context.Context, img imaging.RawImage) (*Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := c.SetImageFromBytes(img.Data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	return groupBoxes(boxes), nil
}

type lineKey struct{ block, par, line int }

// groupBoxes converts Tesseract word boxes into lines, keeping Tesseract's
// reading order. Blank words are dropped.
func groupBoxes(boxes []gosseract.BoundingBox) *Transcription {
	index := make(map[lineKey]int)
	var keys []lineKey
	var lines []Line

	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		k := lineKey{b.BlockNum, b.ParNum, b.LineNum}
		i, ok := index[k]
		if !ok {
			i = len(lines)
			index[k] = i
			keys = append(keys, k)
			lines = append(lines, Line{})
		}
		lines[i].Words = append(lines[i].Words, Word{
			Text: text,
			Rect: Rect{
				Left:   b.Box.Min.X,
				Top:    b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
		})
	}

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		if ka.block != kb.block {
			return ka.block < kb.block
		}
		if ka.par != kb.par {
			return ka.par < kb.par
		}
		return ka.line < kb.line
	})

	tr := &Transcription{Lines: make([]Line, 0, len(lines))}
	for _, i := range order {
		tr.Lines = append(tr.Lines, lines[i])
	}
	return tr
}
