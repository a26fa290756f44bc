package imaging

import (
	"errors"
	"fmt"
	"net/http"
)

// MaxUploadBytes is the largest sample accepted for analysis.
const MaxUploadBytes = 5 << 20

// Upload rejection reasons, matched with errors.Is.
var (
	ErrEmptyUpload       = errors.New("empty upload")
	ErrUploadTooLarge    = errors.New("upload too large")
	ErrUnsupportedUpload = errors.New("unsupported upload type")
)

// ValidateUpload checks data against the intake rules: at most
// MaxUploadBytes, and JPEG or PNG content as sniffed from the bytes
// themselves. It returns the sniffed MIME type.
func ValidateUpload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrUploadTooLarge, len(data), MaxUploadBytes)
	}
	mime := http.DetectContentType(data)
	switch mime {
	case "image/jpeg", "image/png":
		return mime, nil
	}
	return "", fmt.Errorf("%w: %s, only JPEG and PNG are accepted", ErrUnsupportedUpload, mime)
}
