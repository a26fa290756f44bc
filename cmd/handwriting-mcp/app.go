package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/analysis"
	"github.com/ironsheep/handwriting-tools-mcp/internal/classifier"
	"github.com/ironsheep/handwriting-tools-mcp/internal/config"
	"github.com/ironsheep/handwriting-tools-mcp/internal/logging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/ocr"
	"github.com/ironsheep/handwriting-tools-mcp/internal/storage"
)

// app is everything a pipeline command needs, built once at startup.
type app struct {
	cfg        *config.Config
	thresholds config.Thresholds
	engine     ocr.Engine
	analyzer   *analysis.Analyzer
	redis      *redis.Client
	logger     *logging.Logger
}

// newApp loads configuration, thresholds, the OCR engine and the classifier
// bank. Any failure here is fatal for the calling command.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger("main")

	thresholds, err := config.LoadThresholds(cfg.ModelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load thresholds (run 'handwriting-mcp models init'?): %w", err)
	}

	a := &app{cfg: cfg, thresholds: thresholds, logger: logger}

	engine, err := a.buildEngine(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine

	bank, err := buildBank(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.analyzer, err = analysis.New(analysis.Options{
		OCR:        engine,
		Bank:       bank,
		Thresholds: thresholds,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("Pipeline ready", "ocr", engine.Name(), "classifiers", cfg.ClassifierBackend,
		"models", cfg.ModelsPath, "cache", a.redis != nil, "log_level", logging.CurrentLevel())
	return a, nil
}

// buildEngine picks the OCR provider, wraps it with the retry policy and,
// when Redis is configured, the transcription cache.
func (a *app) buildEngine(ctx context.Context) (ocr.Engine, error) {
	cfg := a.cfg

	var engine ocr.Engine
	switch cfg.OCRProvider {
	case config.ProviderTesseract:
		engine = ocr.NewTesseractEngine(cfg.OCRLanguage)
	default:
		client, err := ocr.NewSpaceClient(ocr.SpaceConfig{
			APIKey:   cfg.OCRSpaceAPIKey,
			URL:      cfg.OCRSpaceURL,
			Language: cfg.OCRLanguage,
		})
		if err != nil {
			return nil, err
		}
		engine = client
	}

	retry := ocr.DefaultRetryConfig()
	retry.MaxAttempts = cfg.OCRMaxAttempts
	retry.Timeout = cfg.OCRTimeout
	engine = ocr.WithRetry(engine, retry)

	if cfg.RedisURL != "" {
		rdb, err := ocr.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		engine = ocr.WithCache(engine, rdb, cfg.OCRCacheTTL)
	}
	return engine, nil
}

func buildBank(ctx context.Context, cfg *config.Config) (*classifier.Bank, error) {
	switch cfg.ClassifierBackend {
	case config.BackendTFServing:
		client := &http.Client{Timeout: 30 * time.Second}
		return classifier.NewRemoteBank(ctx, cfg.TFServingURL, client)
	case config.BackendStub:
		return classifier.NewFixedBank(nil), nil
	default:
		return classifier.LoadSoftmaxBank(cfg.ModelsPath)
	}
}

// openStore opens the result store named by cfg.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	return store, nil
}

// storeLabel describes the store for log lines without leaking credentials.
func storeLabel(cfg *config.Config) string {
	if cfg.UsePostgres() {
		return "postgres"
	}
	return "sqlite:" + cfg.DBPath
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis", "error", err)
		}
	}
}
