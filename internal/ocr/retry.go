package ocr

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxAttempts int           // attempts including the first; values < 1 mean 1
	Timeout     time.Duration // per attempt; 0 disables
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig is two attempts of 30 seconds each.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		Timeout:     30 * time.Second,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2,
	}
}

// RetryEngine is a decorator that bounds each attempt with a timeout and
// retries transient failures with exponential backoff and jitter.
type RetryEngine struct {
	inner  Engine
	config RetryConfig
}

// WithRetry wraps an Engine with retry logic.
func WithRetry(e Engine, cfg RetryConfig) Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	return &RetryEngine{inner: e, config: cfg}
}

func (r *RetryEngine) Name() string { return r.inner.Name() }

func (r *RetryEngine) Recognize(ctx context.Context, img imaging.RawImage) (*Transcription, error) {
	var lastErr error

	for attempt := range r.config.MaxAttempts {
		tr, err := r.attempt(ctx, img)
		if err == nil {
			return tr, nil
		}
		lastErr = err

		// The caller's context ending is final; an attempt timeout is not.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransient(err) {
			return nil, err
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	return nil, lastErr
}

func (r *RetryEngine) attempt(ctx context.Context, img imaging.RawImage) (*Transcription, error) {
	if r.config.Timeout <= 0 {
		return r.inner.Recognize(ctx, img)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()
	return r.inner.Recognize(attemptCtx, img)
}

// backoff computes the wait duration for the given attempt.
func (r *RetryEngine) backoff(attempt int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.MaxWait > 0 && wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// ±20% jitter
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// isTransient reports whether an Engine error is worth another attempt.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var status *ErrServiceStatus
	if errors.As(err, &status) {
		return status.Transient()
	}
	var proc *ErrProcessing
	if errors.As(err, &proc) {
		return false
	}
	var malformed *ErrMalformedResponse
	if errors.As(err, &malformed) {
		return false
	}
	// transport errors and attempt timeouts
	return true
}
