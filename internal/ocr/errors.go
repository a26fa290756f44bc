package ocr

import (
	"fmt"
	"net/http"
)

// ErrServiceStatus indicates the OCR service answered with a non-2xx status.
type ErrServiceStatus struct {
	StatusCode int
	Body       string
}

func (e *ErrServiceStatus) Error() string {
	return fmt.Sprintf("OCR service returned status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status is worth retrying.
func (e *ErrServiceStatus) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ErrProcessing indicates the service accepted the request but reported
// IsErroredOnProcessing.
type ErrProcessing struct {
	Message string
}

func (e *ErrProcessing) Error() string {
	if e.Message == "" {
		return "OCR processing failed"
	}
	return fmt.Sprintf("OCR processing failed: %s", e.Message)
}

// ErrMalformedResponse indicates the response body could not be interpreted
// as a transcription.
type ErrMalformedResponse struct {
	Reason string
	Err    error
}

func (e *ErrMalformedResponse) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed OCR response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed OCR response: %s", e.Reason)
}

func (e *ErrMalformedResponse) Unwrap() error { return e.Err }
