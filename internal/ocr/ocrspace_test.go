package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

const overlayResponse = `{
  "ParsedResults": [{
    "TextOverlay": {
      "Lines": [
        {"LineText": "good day", "Words": [
          {"WordText": "good", "Left": 10.4, "Top": 20, "Width": 40.6, "Height": 18},
          {"WordText": "day", "Left": 60, "Top": 21, "Width": 30, "Height": 17}
        ]},
        {"LineText": "yes", "Words": [
          {"WordText": "yes", "Left": 12, "Top": 60, "Width": 28, "Height": 19}
        ]}
      ],
      "HasOverlay": true
    },
    "ParsedText": "good day\r\nyes\r\n"
  }],
  "OCRExitCode": 1,
  "IsErroredOnProcessing": false
}`

func newTestSpaceClient(t *testing.T, url string) *SpaceClient {
	t.Helper()
	c, err := NewSpaceClient(SpaceConfig{APIKey: "test-key", URL: url, Language: "eng"})
	require.NoError(t, err)
	return c
}

func sampleRaw() imaging.RawImage {
	return imaging.RawImage{Data: []byte("\x89PNG fake"), Format: "png", Filename: "sample.png"}
}

func TestNewSpaceClient_RequiresKey(t *testing.T) {
	_, err := NewSpaceClient(SpaceConfig{APIKey: "  "})
	assert.Error(t, err)

	c, err := NewSpaceClient(SpaceConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultSpaceURL, c.url)
	assert.Equal(t, "ocrspace", c.Name())
}

func TestSpaceClient_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		assert.Equal(t, "true", r.FormValue("isOverlayRequired"))
		assert.Equal(t, "eng", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "sample.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		body, _ := io.ReadAll(f)
		assert.Equal(t, "\x89PNG fake", string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, overlayResponse)
	}))
	defer srv.Close()

	tr, err := newTestSpaceClient(t, srv.URL).Recognize(context.Background(), sampleRaw())
	require.NoError(t, err)
	require.Len(t, tr.Lines, 2)
	require.Len(t, tr.Lines[0].Words, 2)

	assert.Equal(t, Word{Text: "good", Rect: Rect{Left: 10, Top: 20, Width: 41, Height: 18}}, tr.Lines[0].Words[0])
	assert.Equal(t, "yes", tr.Lines[1].Words[0].Text)
	assert.Equal(t, 3, tr.WordCount())
}

func TestSpaceClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error status",
			status: http.StatusServiceUnavailable,
			body:   "down",
			check: func(t *testing.T, err error) {
				var se *ErrServiceStatus
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
				assert.True(t, se.Transient())
			},
		},
		{
			name:   "client error status",
			status: http.StatusForbidden,
			body:   "bad key",
			check: func(t *testing.T, err error) {
				var se *ErrServiceStatus
				require.ErrorAs(t, err, &se)
				assert.False(t, se.Transient())
			},
		},
		{
			name:   "processing error string",
			status: http.StatusOK,
			body:   `{"IsErroredOnProcessing": true, "ErrorMessage": "File too large"}`,
			check: func(t *testing.T, err error) {
				var pe *ErrProcessing
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "File too large", pe.Message)
			},
		},
		{
			name:   "processing error array",
			status: http.StatusOK,
			body:   `{"IsErroredOnProcessing": true, "ErrorMessage": ["E101", "Timed out"]}`,
			check: func(t *testing.T, err error) {
				var pe *ErrProcessing
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "E101; Timed out", pe.Message)
			},
		},
		{
			name:   "invalid json",
			status: http.StatusOK,
			body:   `<html>oops</html>`,
			check: func(t *testing.T, err error) {
				var me *ErrMalformedResponse
				require.ErrorAs(t, err, &me)
			},
		},
		{
			name:   "no parsed results",
			status: http.StatusOK,
			body:   `{"IsErroredOnProcessing": false, "ParsedResults": []}`,
			check: func(t *testing.T, err error) {
				var me *ErrMalformedResponse
				require.ErrorAs(t, err, &me)
				assert.Contains(t, me.Error(), "ParsedResults")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestSpaceClient(t, srv.URL).Recognize(context.Background(), sampleRaw())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestSpaceClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestSpaceClient(t, url).Recognize(context.Background(), sampleRaw())
	require.Error(t, err)
	assert.True(t, isTransient(err))

	var se *ErrServiceStatus
	assert.False(t, errors.As(err, &se))
}

func TestSpaceClient_EmptyOverlay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ParsedResults": [{"TextOverlay": {"Lines": []}}]}`)
	}))
	defer srv.Close()

	tr, err := newTestSpaceClient(t, srv.URL).Recognize(context.Background(), sampleRaw())
	require.NoError(t, err)
	assert.Empty(t, tr.Lines)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", errorMessage(nil))
	assert.Equal(t, "x", errorMessage([]byte(`"x"`)))
	assert.Equal(t, "a; b", errorMessage([]byte(`["a","b"]`)))
	assert.Equal(t, "42", errorMessage([]byte(`42`)))
}
