// Package queue carries handwriting analyses through a Redis-backed asynq
// queue: a Producer submits samples and a Consumer analyzes them and stores
// the outcome.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
)

// TypeAnalyze is the asynq task type for one sample analysis.
const TypeAnalyze = "handwriting:analyze"

// AnalyzePayload is the task body.
type AnalyzePayload struct {
	SampleID  string `json:"sample_id"`
	SubjectID string `json:"subject_id"`
	Filename  string `json:"filename"`
	Image     []byte `json:"image"`
}

// NewAnalyzeTask validates p and wraps it as a task. An empty SampleID is
// filled with a fresh UUID and doubles as the asynq task ID.
func NewAnalyzeTask(p *AnalyzePayload) (*asynq.Task, error) {
	if p.SubjectID == "" {
		return nil, fmt.Errorf("subject ID is required")
	}
	if _, err := imaging.ValidateUpload(p.Image); err != nil {
		return nil, err
	}
	if p.SampleID == "" {
		p.SampleID = uuid.NewString()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAnalyze, data, asynq.TaskID(p.SampleID), asynq.MaxRetry(3)), nil
}

// Producer submits analysis tasks.
type Producer struct {
	client *asynq.Client
	queue  string
}

// NewProducer connects to the Redis at redisURL.
func NewProducer(redisURL, queueName string) (*Producer, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if queueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Producer{client: asynq.NewClient(opt), queue: queueName}, nil
}

// Enqueue submits p and returns the sample ID.
func (p *Producer) Enqueue(ctx context.Context, payload *AnalyzePayload) (string, error) {
	task, err := NewAnalyzeTask(payload)
	if err != nil {
		return "", err
	}
	info, err := p.client.EnqueueContext(ctx, task, asynq.Queue(p.queue), asynq.Retention(24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", payload.SampleID, err)
	}
	return info.ID, nil
}

// Close releases the Redis connection.
func (p *Producer) Close() error {
	return p.client.Close()
}
