package features

import (
	"image"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// Pressure labels.
const (
	PressureHeavy  = "heavy"
	PressureMedium = "medium"
	PressureLight  = "light"
)

// PressureThresholds bucket the mean luminance of a sample.
type PressureThresholds struct {
	Low  float64 `json:"low_threshold"`
	High float64 `json:"high_threshold"`
}

// PressureFromMean maps a mean intensity to a label. Darker samples mean
// heavier pressure; values equal to a threshold are medium.
func PressureFromMean(mean float64, th PressureThresholds) string {
	switch {
	case mean < th.Low:
		return PressureHeavy
	case mean > th.High:
		return PressureLight
	default:
		return PressureMedium
	}
}

// Pressure measures img and returns its pressure label. It returns
// PressureMedium if the image cannot be measured.
func Pressure(img image.Image, th PressureThresholds) string {
	mean, err := imaging.MeanIntensity(img)
	if err != nil {
		return PressureMedium
	}
	return PressureFromMean(mean, th)
}
