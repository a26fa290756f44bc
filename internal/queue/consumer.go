package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ironsheep/handwriting-tools-mcp/internal/analysis"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/logging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/scoring"
	"github.com/ironsheep/handwriting-tools-mcp/internal/storage"
)

// Analyzer is the part of analysis.Analyzer the consumer needs.
type Analyzer interface {
	Analyze(ctx context.Context, raw imaging.RawImage) (*scoring.Result, error)
}

// DefaultProcessingTimeout bounds one task when ConsumerConfig leaves it zero.
const DefaultProcessingTimeout = 2 * time.Minute

// Handler processes TypeAnalyze tasks: it analyzes the sample and saves a
// record of the outcome, failed analyses included.
type Handler struct {
	analyzer Analyzer
	store    storage.Store
	timeout  time.Duration
	logger   *logging.Logger
}

// NewHandler builds a Handler. timeout <= 0 selects DefaultProcessingTimeout.
func NewHandler(a Analyzer, store storage.Store, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}
	return &Handler{analyzer: a, store: store, timeout: timeout, logger: logging.NewLogger("queue")}
}

// ProcessTask implements asynq.Handler.
//
// Undecodable payloads, rejected uploads and samples that arrive inside the
// subject's MinSampleInterval are not retried. A sample whose ID is already
// stored is acknowledged without running again. A failed analysis is stored
// as an error record and the task succeeds. Only storage failures make asynq
// retry the task.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var p AnalyzePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.SubjectID == "" {
		return fmt.Errorf("sample %s has no subject: %w", p.SampleID, asynq.SkipRetry)
	}

	sampleID, idErr := uuid.Parse(p.SampleID)
	if idErr == nil {
		if _, err := h.store.Get(ctx, sampleID); err == nil {
			h.logger.Info("Sample already processed", "sample", p.SampleID)
			return nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to look up sample %s: %w", p.SampleID, err)
		}
	}

	if err := storage.CheckInterval(ctx, h.store, p.SubjectID, time.Now()); err != nil {
		var interval *storage.IntervalError
		if errors.As(err, &interval) {
			h.logger.Warn("Sample refused", "sample", p.SampleID, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	h.logger.Info("Processing sample", "sample", p.SampleID, "subject", p.SubjectID,
		"file", p.Filename, "bytes", len(p.Image))

	var (
		res *scoring.Result
		err error
	)
	if _, err = imaging.ValidateUpload(p.Image); err == nil {
		processCtx, cancel := context.WithTimeout(ctx, h.timeout)
		res, err = h.analyzer.Analyze(processCtx, imaging.NewRawImage(p.Image, p.Filename))
		cancel()
	}

	rec := storage.NewRecord(p.SubjectID, p.Filename, res, err)
	if idErr == nil {
		rec.ID = sampleID
	}

	if err != nil {
		var extraction *analysis.ExtractionError
		if errors.As(err, &extraction) {
			h.logger.Warn("Analysis failed", "sample", p.SampleID, "error", err)
		} else {
			h.logger.Warn("Sample rejected", "sample", p.SampleID, "error", err)
		}
	}

	if serr := h.store.Save(ctx, rec); serr != nil {
		h.logger.Error("Failed to save analysis", "sample", p.SampleID, "error", serr)
		return fmt.Errorf("failed to save analysis %s: %w", p.SampleID, serr)
	}

	h.logger.Info("Sample processed", "sample", p.SampleID, "prediction", rec.Prediction,
		"confidence", rec.Confidence, "duration", time.Since(start))
	return nil
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	RedisURL        string
	QueueName       string
	Concurrency     int
	Handler         *Handler
	ShutdownTimeout time.Duration
}

// Consumer runs an asynq server over the analysis queue.
type Consumer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	config *ConsumerConfig
	logger *logging.Logger
}

// NewConsumer creates a consumer. Nothing connects until Run.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("Handler is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("worker")
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			cfg.QueueName: 10,
			"default":     1,
		},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", "type", task.Type(), "error", err)
		}),
		ShutdownTimeout: cfg.ShutdownTimeout,
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeAnalyze, cfg.Handler)

	return &Consumer{server: server, mux: mux, config: cfg, logger: logger}, nil
}

// retryDelay backs off 5s, 10s, 20s ... capped at one minute.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > time.Minute || delay <= 0 {
		delay = time.Minute
	}
	return delay
}

// Run processes tasks until ctx is done, then shuts the server down.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)
	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	<-ctx.Done()
	c.logger.Info("Stopping queue consumer")
	c.server.Shutdown()
	return nil
}
