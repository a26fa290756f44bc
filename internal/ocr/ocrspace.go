package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// DefaultSpaceURL is the public OCR.space parse endpoint.
const DefaultSpaceURL = "https://api.ocr.space/parse/image"

// maxErrorBody bounds how much of a failed response is kept in errors.
const maxErrorBody = 512

// SpaceConfig configures a SpaceClient.
type SpaceConfig struct {
	APIKey   string
	URL      string // defaults to DefaultSpaceURL
	Language string // OCR.space language code, e.g. "eng"
	// HTTPClient is used for requests. Timeouts are applied per attempt by
	// WithRetry, so the default client has none of its own.
	HTTPClient *http.Client
}

// SpaceClient is an Engine backed by the OCR.space REST API.
type SpaceClient struct {
	apiKey     string
	url        string
	language   string
	httpClient *http.Client
}

// NewSpaceClient validates cfg and returns a client. A missing API key is an
// error.
func NewSpaceClient(cfg SpaceConfig) (*SpaceClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OCR.space API key is required")
	}
	url := cfg.URL
	if url == "" {
		url = DefaultSpaceURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &SpaceClient{
		apiKey:     cfg.APIKey,
		url:        url,
		language:   cfg.Language,
		httpClient: client,
	}, nil
}

// Name returns "ocrspace".
func (c *SpaceClient) Name() string { return "ocrspace" }

// Recognize uploads img and converts the word overlay into a Transcription.
func (c *SpaceClient) Recognize(ctx context.Context, img imaging.RawImage) (*Transcription, error) {
	body, contentType, err := c.buildForm(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ErrServiceStatus{StatusCode: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}

	return parseSpaceResponse(data)
}

func (c *SpaceClient) buildForm(img imaging.RawImage) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"apikey", c.apiKey},
		{"isOverlayRequired", "true"},
	}
	if c.language != "" {
		fields = append(fields, [2]string{"language", c.language})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}

	filename := img.Filename
	if filename == "" {
		filename = "sample." + extensionFor(img.Format)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", img.MimeType())
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

type spaceResponse struct {
	ParsedResults         []spaceParsedResult `json:"ParsedResults"`
	IsErroredOnProcessing bool                `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage     `json:"ErrorMessage"`
}

type spaceParsedResult struct {
	TextOverlay struct {
		Lines []struct {
			Words []struct {
				WordText string  `json:"WordText"`
				Left     float64 `json:"Left"`
				Top      float64 `json:"Top"`
				Width    float64 `json:"Width"`
				Height   float64 `json:"Height"`
			} `json:"Words"`
		} `json:"Lines"`
	} `json:"TextOverlay"`
}

func parseSpaceResponse(data []byte) (*Transcription, error) {
	var resp spaceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ErrMalformedResponse{Reason: "invalid JSON", Err: err}
	}

	if resp.IsErroredOnProcessing {
		return nil, &ErrProcessing{Message: errorMessage(resp.ErrorMessage)}
	}

	if len(resp.ParsedResults) == 0 {
		return nil, &ErrMalformedResponse{Reason: "no ParsedResults"}
	}

	overlay := resp.ParsedResults[0].TextOverlay
	tr := &Transcription{Lines: make([]Line, 0, len(overlay.Lines))}
	for _, l := range overlay.Lines {
		line := Line{Words: make([]Word, 0, len(l.Words))}
		for _, w := range l.Words {
			line.Words = append(line.Words, Word{
				Text: w.WordText,
				Rect: Rect{
					Left:   int(math.Round(w.Left)),
					Top:    int(math.Round(w.Top)),
					Width:  int(math.Round(w.Width)),
					Height: int(math.Round(w.Height)),
				},
			})
		}
		tr.Lines = append(tr.Lines, line)
	}
	return tr, nil
}

// errorMessage accepts ErrorMessage as a string, an array of strings, or null.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return strings.TrimSpace(string(raw))
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "unknown", "":
		return "png"
	}
	return format
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
