// Package config loads runtime settings from the environment and the
// threshold files that calibrate the pressure and spacing heuristics.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OCR providers.
const (
	ProviderOCRSpace  = "ocrspace"
	ProviderTesseract = "tesseract"
)

// Classifier backends.
const (
	BackendSoftmax   = "softmax"
	BackendTFServing = "tfserving"
	BackendStub      = "stub"
)

// Config holds process configuration.
type Config struct {
	// OCR
	OCRProvider    string
	OCRSpaceAPIKey string
	OCRSpaceURL    string
	OCRLanguage    string
	OCRTimeout     time.Duration
	OCRMaxAttempts int

	// Models and thresholds
	ModelsPath        string
	ClassifierBackend string
	TFServingURL      string

	// Redis: OCR cache and job queue
	RedisURL    string
	OCRCacheTTL time.Duration
	QueueName   string

	// Result storage
	DatabaseURL string
	DBPath      string

	WorkerConcurrency int
	LogLevel          string
}

// Load reads the configuration with Read and validates it.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Read loads the given .env files (".env" when none are named; missing files
// are ignored), then the environment. It does not validate, so commands that
// never touch OCR can run without an API key.
func Read(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		OCRProvider:       strings.ToLower(getEnvOrDefault("OCR_PROVIDER", ProviderOCRSpace)),
		OCRSpaceAPIKey:    getEnvOrDefault("OCR_SPACE_API_KEY", ""),
		OCRSpaceURL:       getEnvOrDefault("OCR_SPACE_URL", "https://api.ocr.space/parse/image"),
		OCRLanguage:       getEnvOrDefault("OCR_LANGUAGE", "eng"),
		OCRTimeout:        getEnvAsDurationOrDefault("OCR_TIMEOUT", 30*time.Second),
		OCRMaxAttempts:    getEnvAsIntOrDefault("OCR_MAX_ATTEMPTS", 2),
		ModelsPath:        getEnvOrDefault("MODELS_PATH", "models"),
		ClassifierBackend: strings.ToLower(getEnvOrDefault("CLASSIFIER_BACKEND", BackendSoftmax)),
		TFServingURL:      getEnvOrDefault("TFSERVING_URL", "http://localhost:8501"),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		OCRCacheTTL:       getEnvAsDurationOrDefault("OCR_CACHE_TTL", 24*time.Hour),
		QueueName:         getEnvOrDefault("QUEUE_NAME", "handwriting"),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		DBPath:            getEnvOrDefault("HANDWRITING_DB", "handwriting.db"),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		LogLevel:          getEnvOrDefault("HANDWRITING_LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.OCRProvider {
	case ProviderOCRSpace:
		if c.OCRSpaceAPIKey == "" {
			return fmt.Errorf("OCR_SPACE_API_KEY is required when OCR_PROVIDER is %s", ProviderOCRSpace)
		}
	case ProviderTesseract:
	default:
		return fmt.Errorf("OCR_PROVIDER must be %s or %s, got %q", ProviderOCRSpace, ProviderTesseract, c.OCRProvider)
	}

	switch c.ClassifierBackend {
	case BackendSoftmax, BackendTFServing, BackendStub:
	default:
		return fmt.Errorf("CLASSIFIER_BACKEND must be one of %s, %s, %s, got %q",
			BackendSoftmax, BackendTFServing, BackendStub, c.ClassifierBackend)
	}

	if c.OCRTimeout <= 0 {
		return fmt.Errorf("OCR_TIMEOUT must be positive, got %s", c.OCRTimeout)
	}
	if c.OCRMaxAttempts < 1 || c.OCRMaxAttempts > 10 {
		return fmt.Errorf("OCR_MAX_ATTEMPTS must be between 1 and 10, got %d", c.OCRMaxAttempts)
	}
	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}
	if c.ModelsPath == "" {
		return fmt.Errorf("MODELS_PATH is required")
	}
	return nil
}

// UsePostgres reports whether DatabaseURL selects the Postgres store.
func (c *Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDurationOrDefault accepts Go durations ("45s") or plain seconds.
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
