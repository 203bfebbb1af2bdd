package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/logging"
	"github.com/ironsheep/sheet-redact/internal/ocr"
	"github.com/ironsheep/sheet-redact/internal/patterns"
	"github.com/ironsheep/sheet-redact/internal/pipeline"
	"github.com/ironsheep/sheet-redact/internal/workbook"
)

// Runner masks one job's workbook.
type Runner func(ctx context.Context, p MaskPayload) (*pipeline.Summary, error)

// Worker consumes masking tasks.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	handler *Handler
	logger  *logging.Logger
}

// NewWorker creates a worker for cfg.Queue. Jobs run one at a time per
// asynq slot; each job already uses cfg.Concurrency OCR workers.
func NewWorker(cfg *config.Config, handler *Handler, logger *logging.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{cfg.Queue: 10},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			delay := time.Duration(5*(1<<uint(n))) * time.Second
			if delay > time.Minute {
				delay = time.Minute
			}
			return delay
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", "type", task.Type(), "error", err)
		}),
		Logger: asynqLogger{logger},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMaskWorkbook, handler.ProcessTask)

	return &Worker{server: server, mux: mux, handler: handler, logger: logger}, nil
}

// Run processes tasks until the process receives a termination signal.
func (w *Worker) Run() error {
	w.logger.Info("starting worker")
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// Handler runs masking tasks and records their status.
type Handler struct {
	run    Runner
	status StatusRecorder
	logger *logging.Logger
}

// NewHandler creates a Handler. status may be nil.
func NewHandler(run Runner, status StatusRecorder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{run: run, status: status, logger: logger}
}

// ProcessTask is the asynq handler for TypeMaskWorkbook.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p MaskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(p.JobID)
	log.Info("processing workbook", "input", p.Input, "output", p.Output)
	h.setStatus(ctx, p.JobID, JobStatus{State: StateProcessing})

	start := time.Now()
	summary, err := h.run(ctx, p)
	if err != nil {
		st := JobStatus{State: StateFailed, Error: err.Error()}
		fillCounts(&st, summary)
		h.setStatus(ctx, p.JobID, st)
		log.Error("job failed", "error", err, "duration", time.Since(start))
		if permanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	st := JobStatus{State: StateCompleted}
	fillCounts(&st, summary)
	h.setStatus(ctx, p.JobID, st)
	log.Info("job completed", "masked", st.Masked, "failed", st.Failed, "duration", time.Since(start))
	return nil
}

func (h *Handler) setStatus(ctx context.Context, jobID string, st JobStatus) {
	if h.status == nil {
		return
	}
	if err := h.status.SetStatus(ctx, jobID, st); err != nil {
		h.logger.Warn("failed to update job status", "job", jobID, "error", err)
	}
}

func fillCounts(st *JobStatus, s *pipeline.Summary) {
	if s == nil {
		return
	}
	st.Images = len(s.Outcomes)
	st.Masked = s.Count(pipeline.StatusMasked)
	st.Failed = s.Count(pipeline.StatusFailed) + s.Count(pipeline.StatusSkipped)
	st.Redactions = s.Redactions()
}

// permanent reports errors that a retry cannot fix.
func permanent(err error) bool {
	var docErr *workbook.DocumentError
	var cfgErr *patterns.ConfigError
	return errors.As(err, &docErr) ||
		errors.As(err, &cfgErr) ||
		errors.Is(err, pipeline.ErrAborted) ||
		errors.Is(err, ocr.ErrUnavailable)
}

// asynqLogger routes asynq's logging through ours.
type asynqLogger struct {
	l *logging.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
