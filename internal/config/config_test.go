package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"OCR_PROVIDER", "OCR_SPACE_API_KEY", "OCR_SPACE_URL", "OCR_LANGUAGE", "OCR_TIMEOUT",
	"OCR_MAX_ATTEMPTS", "MODELS_PATH", "CLASSIFIER_BACKEND", "TFSERVING_URL", "REDIS_URL",
	"OCR_CACHE_TTL", "QUEUE_NAME", "DATABASE_URL", "HANDWRITING_DB", "WORKER_CONCURRENCY",
	"HANDWRITING_LOG_LEVEL",
}

// clearEnv blanks every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_SPACE_API_KEY", "k")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, ProviderOCRSpace, cfg.OCRProvider)
	assert.Equal(t, "https://api.ocr.space/parse/image", cfg.OCRSpaceURL)
	assert.Equal(t, 30*time.Second, cfg.OCRTimeout)
	assert.Equal(t, 2, cfg.OCRMaxAttempts)
	assert.Equal(t, "models", cfg.ModelsPath)
	assert.Equal(t, BackendSoftmax, cfg.ClassifierBackend)
	assert.Equal(t, 24*time.Hour, cfg.OCRCacheTTL)
	assert.Equal(t, "handwriting.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.False(t, cfg.UsePostgres())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	for _, k := range configKeys {
		os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"OCR_PROVIDER=tesseract\nOCR_TIMEOUT=45\nCLASSIFIER_BACKEND=stub\nDATABASE_URL=postgres://u:p@db/hw\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderTesseract, cfg.OCRProvider)
	assert.Equal(t, 45*time.Second, cfg.OCRTimeout)
	assert.Equal(t, BackendStub, cfg.ClassifierBackend)
	assert.True(t, cfg.UsePostgres())
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing api key", map[string]string{}, "OCR_SPACE_API_KEY"},
		{"bad provider", map[string]string{"OCR_PROVIDER": "cloud"}, "OCR_PROVIDER"},
		{"bad backend", map[string]string{"OCR_PROVIDER": "tesseract", "CLASSIFIER_BACKEND": "onnx"}, "CLASSIFIER_BACKEND"},
		{"zero attempts", map[string]string{"OCR_PROVIDER": "tesseract", "OCR_MAX_ATTEMPTS": "0"}, "OCR_MAX_ATTEMPTS"},
		{"too many workers", map[string]string{"OCR_PROVIDER": "tesseract", "WORKER_CONCURRENCY": "500"}, "WORKER_CONCURRENCY"},
		{"negative timeout", map[string]string{"OCR_PROVIDER": "tesseract", "OCR_TIMEOUT": "-1s"}, "OCR_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(missingEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("HANDWRITING_DB", "/tmp/hw.db")

	cfg, err := Read(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hw.db", cfg.DBPath)
	assert.Error(t, cfg.Validate(), "no API key is set")
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	t.Setenv("HW_TEST_DURATION", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvAsDurationOrDefault("HW_TEST_DURATION", time.Second))

	t.Setenv("HW_TEST_DURATION", "12")
	assert.Equal(t, 12*time.Second, getEnvAsDurationOrDefault("HW_TEST_DURATION", time.Second))

	t.Setenv("HW_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDurationOrDefault("HW_TEST_DURATION", time.Second))
}
