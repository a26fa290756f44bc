package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
)

// MeanIntensity returns the mean luminance of img on a 0-255 scale.
// Darker writing on the same paper yields a lower value.
func MeanIntensity(img image.Image) (float64, error) {
	if img == nil {
		return 0, fmt.Errorf("mean intensity: nil image")
	}
	if img.Bounds().Empty() {
		return 0, fmt.Errorf("mean intensity: empty image %v", img.Bounds())
	}

	gray := imaging.Grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	rows := make([]float64, h)
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			line := gray.Pix[y*gray.Stride:]
			var sum float64
			for x := 0; x < w; x++ {
				sum += float64(line[x*4])
			}
			rows[y] = sum
		}
	})

	var total float64
	for _, s := range rows {
		total += s
	}
	return total / float64(w*h), nil
}
