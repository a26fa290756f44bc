package ocr

import (
	"context"
	"strings"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// Engine recognizes the words in a handwriting sample.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img imaging.RawImage) (*Transcription, error)
}

// Rect is an axis-aligned word rectangle in pixels.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns Left + Width.
func (r Rect) Right() int { return r.Left + r.Width }

// Bottom returns Top + Height.
func (r Rect) Bottom() int { return r.Top + r.Height }

// Word is a single recognized word and its location.
type Word struct {
	Text string `json:"text"`
	Rect Rect   `json:"rect"`
}

// Line is an ordered list of words. Engines do not guarantee left-to-right
// order; consumers sort by Rect.Left when order matters.
type Line struct {
	Words []Word `json:"words"`
}

// Transcription is the structured OCR output for one image.
type Transcription struct {
	Lines []Line `json:"lines"`
}

// WordCount returns the number of words across all lines.
func (t *Transcription) WordCount() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, l := range t.Lines {
		n += len(l.Words)
	}
	return n
}

// Text joins words with spaces and lines with newlines.
func (t *Transcription) Text() string {
	if t == nil {
		return ""
	}
	lines := make([]string, 0, len(t.Lines))
	for _, l := range t.Lines {
		words := make([]string, 0, len(l.Words))
		for _, w := range l.Words {
			words = append(words, w.Text)
		}
		lines = append(lines, strings.Join(words, " "))
	}
	return strings.Join(lines, "\n")
}
