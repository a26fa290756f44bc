package glyph

import (
	"image"
	"sort"
	"strings"
	"unicode"

	"github.com/ironsheep/handwriting-tools-mcp/internal/ocr"
)

// TargetLetters are the letters Locate looks for, in capture-priority order.
// 'e' is located and cropped but no classifier consumes it.
var TargetLetters = []rune{'g', 'y', 't', 'd', 'e'}

// IsTarget reports whether r is one of TargetLetters.
func IsTarget(r rune) bool {
	for _, t := range TargetLetters {
		if r == t {
			return true
		}
	}
	return false
}

// Box is a word bounding box in image pixels. Right and Bottom are exclusive.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Valid reports whether the box has positive width and height.
func (b Box) Valid() bool {
	return b.Right > b.Left && b.Bottom > b.Top
}

// Rect returns the box as an image.Rectangle without canonicalizing it.
func (b Box) Rect() image.Rectangle {
	return image.Rectangle{Min: image.Pt(b.Left, b.Top), Max: image.Pt(b.Right, b.Bottom)}
}

func boxFor(w ocr.Word) Box {
	return Box{
		Left:   w.Rect.Left,
		Top:    w.Rect.Top,
		Right:  w.Rect.Left + w.Rect.Width,
		Bottom: w.Rect.Top + w.Rect.Height,
	}
}

// Locate returns the box of the word holding the first occurrence of each
// target letter, scanning lines in order and words left to right. Each word
// contributes at most one letter: the first target letter in it that has not
// been captured yet. Boxes are returned as reported, even when degenerate.
func Locate(tr *ocr.Transcription) map[rune]Box {
	found := make(map[rune]Box, len(TargetLetters))
	if tr == nil {
		return found
	}

	for _, line := range tr.Lines {
		words := make([]ocr.Word, len(line.Words))
		copy(words, line.Words)
		sort.SliceStable(words, func(i, j int) bool {
			return words[i].Rect.Left < words[j].Rect.Left
		})

		for _, w := range words {
			for _, r := range normalize(w.Text) {
				if !IsTarget(r) {
					continue
				}
				if _, ok := found[r]; ok {
					continue
				}
				found[r] = boxFor(w)
				break
			}
			if len(found) == len(TargetLetters) {
				return found
			}
		}
	}
	return found
}

// normalize lower-cases s and drops every non-letter rune.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if !unicode.IsLetter(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
