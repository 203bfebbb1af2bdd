// Package queue runs masking jobs in the background: tasks are enqueued on
// Redis with asynq, a worker runs them through the pipeline, and each job's
// progress is kept in a Redis hash.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeMaskWorkbook is the asynq task type for one workbook.
const TypeMaskWorkbook = "workbook:mask"

// MaskPayload describes one masking job.
type MaskPayload struct {
	JobID      string   `json:"jobId"`
	Input      string   `json:"input"`
	Output     string   `json:"output"`
	ReportPath string   `json:"reportPath,omitempty"`
	Sheets     []string `json:"sheets,omitempty"`
}

// Validate checks the payload fields a worker needs.
func (p MaskPayload) Validate() error {
	var errs []error
	if p.JobID == "" {
		errs = append(errs, errors.New("jobId is required"))
	}
	if p.Input == "" {
		errs = append(errs, errors.New("input is required"))
	}
	if p.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if p.Input != "" && p.Input == p.Output {
		errs = append(errs, errors.New("output must differ from input"))
	}
	return errors.Join(errs...)
}

// NewMaskTask builds the task for p. A missing job ID is generated.
func NewMaskTask(p MaskPayload) (*asynq.Task, MaskPayload, error) {
	if p.JobID == "" {
		p.JobID = uuid.New().String()
	}
	if err := p.Validate(); err != nil {
		return nil, p, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, p, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeMaskWorkbook, data, asynq.TaskID(p.JobID), asynq.MaxRetry(2), asynq.Timeout(30*time.Minute)), p, nil
}

// Client submits masking jobs.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient connects to the Redis at redisURL.
func NewClient(redisURL, queue string) (*Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if queue == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(opt), queue: queue}, nil
}

// Enqueue submits p and returns its job ID.
func (c *Client) Enqueue(ctx context.Context, p MaskPayload) (string, error) {
	task, p, err := NewMaskTask(p)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", p.JobID, err)
	}
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
