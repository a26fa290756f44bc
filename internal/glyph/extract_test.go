package glyph

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := whitePage(100, 100)

	g, err := Crop(img, Box{Left: 10, Top: 20, Right: 40, Bottom: 35})
	require.NoError(t, err)
	assert.Equal(t, 30, g.Bounds().Dx())
	assert.Equal(t, 15, g.Bounds().Dy())

	tests := []struct {
		name string
		box  Box
	}{
		{"zero width", Box{Left: 10, Top: 10, Right: 10, Bottom: 20}},
		{"zero height", Box{Left: 10, Top: 10, Right: 20, Bottom: 10}},
		{"negative width", Box{Left: 30, Top: 10, Right: 20, Bottom: 20}},
		{"negative height", Box{Left: 10, Top: 30, Right: 20, Bottom: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, tt.box)
			assert.Error(t, err)
		})
	}
}

func TestExtract(t *testing.T) {
	img := whitePage(200, 100)
	boxes := map[rune]Box{
		'g': {Left: 0, Top: 0, Right: 20, Bottom: 30},
		'y': {Left: 50, Top: 10, Right: 50, Bottom: 40},     // zero width
		't': {Left: 300, Top: 300, Right: 320, Bottom: 330}, // off the page
		'd': {Left: 190, Top: 90, Right: 210, Bottom: 110},  // partly off the page
	}

	glyphs := Extract(img, boxes)

	require.Contains(t, glyphs, 'g')
	require.Contains(t, glyphs, 'd')
	assert.NotContains(t, glyphs, 'y')
	assert.NotContains(t, glyphs, 't')
	assert.Equal(t, image.Rect(0, 0, 20, 20), glyphs['d'].Bounds().Sub(glyphs['d'].Bounds().Min))
	assert.Len(t, glyphs, 2)
}
