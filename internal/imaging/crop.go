package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
)

// ErrEmptyCrop is returned when a crop rectangle has no area or does not
// overlap the source image at all.
var ErrEmptyCrop = errors.New("empty crop region")

// CropResult contains a cropped glyph encoded for transport.
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropBox extracts rect from img. The result always has rect's size: parts of
// rect that fall outside img are filled with opaque black.
func CropBox(img image.Image, rect image.Rectangle) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("crop %v: nil image", rect)
	}
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, fmt.Errorf("crop %v: %w", rect, ErrEmptyCrop)
	}

	bounds := img.Bounds()
	if rect.In(bounds) {
		return imaging.Crop(img, rect), nil
	}

	inter := rect.Intersect(bounds)
	if inter.Empty() {
		return nil, fmt.Errorf("crop %v outside image bounds %v: %w", rect, bounds, ErrEmptyCrop)
	}

	canvas := imaging.New(rect.Dx(), rect.Dy(), color.Black)
	return imaging.Paste(canvas, imaging.Crop(img, inter), inter.Min.Sub(rect.Min)), nil
}

// EncodeGlyph PNG-encodes img, optionally scaling it first. A scale of 1 or
// less than or equal to 0 leaves the size unchanged.
func EncodeGlyph(img image.Image, scale float64) (*CropResult, error) {
	out := img
	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(img.Bounds().Dx()) * scale)
		newHeight := int(float64(img.Bounds().Dy()) * scale)
		if newWidth < 1 {
			newWidth = 1
		}
		if newHeight < 1 {
			newHeight = 1
		}
		out = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode glyph: %w", err)
	}

	return &CropResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
