package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestMeanIntensity(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want float64
	}{
		{"white", createInMemoryImage(20, 20, color.White), 255},
		{"black", createInMemoryImage(20, 20, color.Black), 0},
		{"half stroke", createStrokeImage(10, 10, 0, 5, color.Black), 127.5},
		{"gray", createInMemoryImage(7, 3, color.Gray{Y: 100}), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MeanIntensity(tt.img)
			if err != nil {
				t.Fatalf("MeanIntensity failed: %v", err)
			}
			if math.Abs(got-tt.want) > 0.5 {
				t.Errorf("MeanIntensity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeanIntensity_OffsetBounds(t *testing.T) {
	img := createInMemoryImage(20, 20, color.White)
	sub := img.SubImage(image.Rect(5, 5, 15, 15))
	got, err := MeanIntensity(sub)
	if err != nil {
		t.Fatalf("MeanIntensity failed: %v", err)
	}
	if math.Abs(got-255) > 0.5 {
		t.Errorf("MeanIntensity = %v, want 255", got)
	}
}

func TestMeanIntensity_Errors(t *testing.T) {
	if _, err := MeanIntensity(nil); err == nil {
		t.Error("Expected error for nil image")
	}
	if _, err := MeanIntensity(image.NewGray(image.Rect(0, 0, 0, 4))); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestProfileInk(t *testing.T) {
	blue := color.RGBA{R: 10, G: 20, B: 120, A: 255}
	img := createStrokeImage(10, 10, 0, 2, blue)

	profile, err := ProfileInk(img, 0)
	if err != nil {
		t.Fatalf("ProfileInk failed: %v", err)
	}
	if profile.InkPixels != 20 {
		t.Errorf("InkPixels = %d, want 20", profile.InkPixels)
	}
	if math.Abs(profile.CoveragePercent-20) > 1e-9 {
		t.Errorf("CoveragePercent = %v, want 20", profile.CoveragePercent)
	}
	if profile.InkRGB.B < profile.InkRGB.R {
		t.Errorf("Ink color %+v should be blue dominant", profile.InkRGB)
	}
	if profile.InkHex == "" {
		t.Error("Expected InkHex to be set")
	}
	if profile.InkHSL.H < 200 || profile.InkHSL.H > 260 {
		t.Errorf("Ink hue = %d, want blue range", profile.InkHSL.H)
	}
}

func TestProfileInk_BlankPage(t *testing.T) {
	profile, err := ProfileInk(createInMemoryImage(8, 8, color.White), DefaultInkCutoff)
	if err != nil {
		t.Fatalf("ProfileInk failed: %v", err)
	}
	if profile.InkPixels != 0 || profile.InkHex != "" {
		t.Errorf("Blank page profile = %+v, want no ink", profile)
	}
	if math.Abs(profile.MeanIntensity-255) > 0.5 {
		t.Errorf("MeanIntensity = %v, want 255", profile.MeanIntensity)
	}
}
