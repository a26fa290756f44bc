package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

// GlyphSize is the side length, in pixels, of a classifier input glyph.
const GlyphSize = 128

// Tensor is a dense float32 array in row-major order.
//
// Preprocess produces Shape [1, GlyphSize, GlyphSize, 1]: batch, height,
// width, channel.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// Len returns the number of elements implied by Shape.
func (t *Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Instance returns the tensor without its batch dimension as nested slices
// of [height][width][channel], the layout TensorFlow Serving expects for one
// instance of a predict request.
func (t *Tensor) Instance() [][][]float32 {
	h, w := t.Shape[1], t.Shape[2]
	out := make([][][]float32, h)
	for y := 0; y < h; y++ {
		row := make([][]float32, w)
		for x := 0; x < w; x++ {
			row[x] = []float32{t.Data[y*w+x]}
		}
		out[y] = row
	}
	return out
}

// Preprocess converts a glyph into the classifier input tensor: single channel
// luminance, resized to GlyphSize x GlyphSize with a bicubic filter, scaled to
// [0, 1].
func Preprocess(img image.Image) (*Tensor, error) {
	if img == nil {
		return nil, fmt.Errorf("preprocess: nil image")
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("preprocess: empty image %v", img.Bounds())
	}

	gray := imaging.Grayscale(img)
	resized := transform.Resize(gray, GlyphSize, GlyphSize, transform.CatmullRom)

	data := make([]float32, GlyphSize*GlyphSize)
	for y := 0; y < GlyphSize; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < GlyphSize; x++ {
			data[y*GlyphSize+x] = float32(row[x*4]) / 255
		}
	}

	return &Tensor{
		Shape: []int{1, GlyphSize, GlyphSize, 1},
		Data:  data,
	}, nil
}
