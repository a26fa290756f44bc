package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultInkCutoff is the luminance below which a pixel counts as ink.
const DefaultInkCutoff = 128

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLColor represents a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// InkProfile summarizes the written strokes of a sample.
//
// CoveragePercent is the share of pixels darker than the ink cutoff. InkHex,
// InkRGB and InkHSL describe the average color of those pixels, averaged in
// linear RGB so dark strokes are not biased by gamma. When no pixel qualifies
// as ink the color fields are zero values and InkHex is empty.
type InkProfile struct {
	MeanIntensity   float64  `json:"mean_intensity"`
	CoveragePercent float64  `json:"coverage_percent"`
	InkPixels       int      `json:"ink_pixels"`
	InkHex          string   `json:"ink_hex,omitempty"`
	InkRGB          RGBColor `json:"ink_rgb"`
	InkHSL          HSLColor `json:"ink_hsl"`
}

// ProfileInk computes an InkProfile for img. Pixels whose luminance is below
// cutoff are treated as ink; a cutoff outside 1-255 falls back to
// DefaultInkCutoff.
func ProfileInk(img image.Image, cutoff int) (*InkProfile, error) {
	if cutoff < 1 || cutoff > 255 {
		cutoff = DefaultInkCutoff
	}

	mean, err := MeanIntensity(img)
	if err != nil {
		return nil, fmt.Errorf("ink profile: %w", err)
	}

	gray := imaging.Grayscale(img)
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var sumR, sumG, sumB float64
	inkPixels := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if int(gray.Pix[y*gray.Stride+x*4]) >= cutoff {
				continue
			}
			c, ok := colorful.MakeColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			if !ok {
				// fully transparent
				continue
			}
			r, g, b := c.LinearRgb()
			sumR += r
			sumG += g
			sumB += b
			inkPixels++
		}
	}

	profile := &InkProfile{
		MeanIntensity:   mean,
		CoveragePercent: 100 * float64(inkPixels) / float64(w*h),
		InkPixels:       inkPixels,
	}
	if inkPixels == 0 {
		return profile, nil
	}

	n := float64(inkPixels)
	avg := colorful.LinearRgb(sumR/n, sumG/n, sumB/n).Clamped()
	r8, g8, b8 := avg.RGB255()
	hue, sat, light := avg.Hsl()
	if math.IsNaN(hue) {
		hue = 0
	}

	profile.InkHex = avg.Hex()
	profile.InkRGB = RGBColor{R: r8, G: g8, B: b8}
	profile.InkHSL = HSLColor{
		H: int(math.Round(hue)),
		S: int(math.Round(sat * 100)),
		L: int(math.Round(light * 100)),
	}
	return profile, nil
}
