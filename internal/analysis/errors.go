package analysis

// ExtractionError reports that text extraction failed and the analysis was
// aborted before any feature was computed.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return "text extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }
