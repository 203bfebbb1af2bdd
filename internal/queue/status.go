package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job states.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// JobStatus is the progress record of one job.
type JobStatus struct {
	State      string
	Images     int
	Masked     int
	Failed     int
	Redactions int
	Error      string
	UpdatedAt  time.Time
}

// StatusRecorder stores job progress.
type StatusRecorder interface {
	SetStatus(ctx context.Context, jobID string, st JobStatus) error
}

// RedisStatus keeps job status in a hash per job.
type RedisStatus struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStatus connects to the Redis at redisURL.
func NewRedisStatus(ctx context.Context, redisURL, prefix string) (*RedisStatus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStatus{client: client, prefix: prefix, ttl: 7 * 24 * time.Hour}, nil
}

func (s *RedisStatus) key(jobID string) string {
	return s.prefix + ":job:" + jobID
}

// SetStatus overwrites the job's hash and refreshes its expiry.
func (s *RedisStatus) SetStatus(ctx context.Context, jobID string, st JobStatus) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	key := s.key(jobID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, statusFields(st))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store status of %s: %w", jobID, err)
	}
	return nil
}

// GetStatus reads a job's status. A job with no record returns ok false.
func (s *RedisStatus) GetStatus(ctx context.Context, jobID string) (JobStatus, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return JobStatus{}, false, fmt.Errorf("failed to read status of %s: %w", jobID, err)
	}
	if len(fields) == 0 {
		return JobStatus{}, false, nil
	}
	return parseStatus(fields), true, nil
}

func (s *RedisStatus) Close() error {
	return s.client.Close()
}

func statusFields(st JobStatus) map[string]interface{} {
	return map[string]interface{}{
		"state":      st.State,
		"images":     st.Images,
		"masked":     st.Masked,
		"failed":     st.Failed,
		"redactions": st.Redactions,
		"error":      st.Error,
		"updated_at": st.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func parseStatus(fields map[string]string) JobStatus {
	atoi := func(k string) int {
		n, _ := strconv.Atoi(fields[k])
		return n
	}
	st := JobStatus{
		State:      fields["state"],
		Images:     atoi("images"),
		Masked:     atoi("masked"),
		Failed:     atoi("failed"),
		Redactions: atoi("redactions"),
		Error:      fields["error"],
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339, fields["updated_at"])
	return st
}
