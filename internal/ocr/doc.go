// Package ocr turns a handwriting sample into a word-level transcription.
//
// Two engines implement the Engine interface:
//   - SpaceClient posts the raw image to the OCR.space REST API and reads the
//     per-word overlay it returns.
//   - TesseractEngine runs a local Tesseract install through gosseract/v2.
//
// Both produce a Transcription: lines of words, each word carrying its text and
// an integer pixel rectangle (left, top, width, height) in the coordinate space
// of the submitted image.
//
// # Decorators
//
// WithRetry adds a per-attempt timeout and exponential backoff with jitter.
// Only transient failures are retried: transport errors, attempt timeouts, and
// HTTP 5xx or 429 responses. Processing errors reported by the service and
// malformed responses fail immediately.
//
// WithCache stores transcriptions in Redis keyed by the SHA-256 of the image
// bytes, so repeated submissions of the same sample skip the remote call.
// Cache failures are logged and never fail a recognition.
//
// # Errors
//
// Failures from SpaceClient are reported as *ErrServiceStatus, *ErrProcessing,
// *ErrMalformedResponse, or a wrapped transport error. Use errors.As to
// distinguish them.
//
// # Prerequisites
//
// TesseractEngine requires Tesseract and its language data to be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
package ocr
