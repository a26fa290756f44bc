package glyph

import (
	"fmt"
	"image"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// Crop cuts box out of img. Boxes without positive width and height are
// rejected.
func Crop(img image.Image, box Box) (image.Image, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("invalid glyph box %+v", box)
	}
	return imaging.CropBox(img, box.Rect())
}

// Extract crops every box from img. Letters whose box is invalid or cannot be
// cropped are omitted from the result.
func Extract(img image.Image, boxes map[rune]Box) map[rune]image.Image {
	glyphs := make(map[rune]image.Image, len(boxes))
	for letter, box := range boxes {
		g, err := Crop(img, box)
		if err != nil {
			continue
		}
		glyphs[letter] = g
	}
	return glyphs
}
