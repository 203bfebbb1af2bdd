package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/detection"
	"github.com/ironsheep/sheet-redact/internal/imaging"
	"github.com/ironsheep/sheet-redact/internal/logging"
	"github.com/ironsheep/sheet-redact/internal/masking"
	"github.com/ironsheep/sheet-redact/internal/ocr"
	"github.com/ironsheep/sheet-redact/internal/patterns"
	"github.com/ironsheep/sheet-redact/internal/workbook"
)

// ErrAborted is returned when the fail policy stops a run.
var ErrAborted = errors.New("run aborted by error policy")

// ImageError identifies the image a per-image failure belongs to.
type ImageError struct {
	ImageID string
	Anchor  workbook.Anchor
	Err     error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s at %s: %v", e.ImageID, e.Anchor, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Orchestrator masks workbooks. It is safe to reuse for several runs.
type Orchestrator struct {
	cfg      *config.Config
	store    workbook.Store
	engine   ocr.Engine
	detector *detection.Detector
	masker   *masking.Masker
	logger   *logging.Logger
}

// New creates an Orchestrator. A nil store selects one per input with
// workbook.NewStore.
func New(cfg *config.Config, store workbook.Store, engine ocr.Engine, registry *patterns.Registry, logger *logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if engine == nil {
		return nil, errors.New("OCR engine is required")
	}
	if registry == nil || registry.Len() == 0 {
		return nil, patterns.ErrNoPatterns
	}
	if logger == nil {
		logger = logging.Discard()
	}
	fill, err := imaging.ParseColor(cfg.MaskColor)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		detector: detection.NewDetector(registry, cfg.MinConfidence),
		masker:   masking.NewMasker(cfg.Padding, fill),
		logger:   logger,
	}, nil
}

// job is one image handed to a worker.
type job struct {
	index  int
	record workbook.ImageRecord
}

// Run masks the workbook at input and writes the result to output.
//
// Cancelling ctx stops dispatching new images; images already in progress
// finish, and the partial result is still saved. The returned error is
// ctx.Err() in that case, alongside a valid Summary.
func (o *Orchestrator) Run(ctx context.Context, input, output string) (*Summary, error) {
	summary := &Summary{Input: input, Output: output, Started: time.Now()}

	store, err := o.storeFor(input)
	if err != nil {
		return nil, err
	}

	records, err := store.Extract(ctx, input, o.cfg.Sheets)
	if err != nil {
		return nil, err
	}
	o.logger.Info("extracted images", "input", input, "count", len(records))

	if len(records) > 0 {
		if err := o.engine.Available(ctx, o.cfg.Lang); err != nil {
			return nil, err
		}
	}

	sess, err := store.Open(ctx, input)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	summary.Outcomes = make([]Outcome, len(records))
	for i, rec := range records {
		summary.Outcomes[i] = Outcome{ImageID: rec.ID, Sheet: rec.Anchor.Sheet, Cell: rec.Anchor.Cell, Status: StatusCanceled}
	}

	fatal := o.process(ctx, sess, records, summary.Outcomes)
	if fatal != nil {
		return summary, fatal
	}

	// Saving must not be interrupted by the cancellation that ended dispatch.
	if err := sess.Save(context.WithoutCancel(ctx), output); err != nil {
		return summary, err
	}
	summary.Finished = time.Now()
	summary.Canceled = ctx.Err() != nil

	o.logger.Info("run complete", "output", output,
		"masked", summary.Count(StatusMasked),
		"clean", summary.Count(StatusClean),
		"failed", summary.Count(StatusFailed)+summary.Count(StatusSkipped),
		"redactions", summary.Redactions())

	if summary.Canceled {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (o *Orchestrator) storeFor(input string) (workbook.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	return workbook.NewStore(input, workbook.Options{
		LegacyBridge: o.cfg.LegacyBridge,
		SofficePath:  o.cfg.SofficePath,
		Logger:       o.logger.With("workbook"),
	})
}

// process runs the worker pool. It returns the first fatal error, if any.
func (o *Orchestrator) process(ctx context.Context, sess workbook.Session, records []workbook.ImageRecord, outcomes []Outcome) error {
	workers := o.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = len(records)
	}

	// dispatchCtx stops handing out work; workCtx lets started images finish.
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()
	workCtx := context.WithoutCancel(ctx)

	jobs := make(chan job)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)
	setFatal := func(err error) {
		mu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		mu.Unlock()
		stopDispatch()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// A job taken after dispatch stopped stays canceled.
				if dispatchCtx.Err() != nil {
					continue
				}
				out, err := o.processImage(workCtx, sess, j.record)
				outcomes[j.index] = out
				if err != nil {
					setFatal(err)
				}
			}
		}()
	}

dispatch:
	for i, rec := range records {
		if dispatchCtx.Err() != nil {
			break
		}
		select {
		case <-dispatchCtx.Done():
			break dispatch
		case jobs <- job{index: i, record: rec}:
		}
	}
	close(jobs)
	wg.Wait()

	return fatalErr
}

// processImage runs one image through recognize, detect, mask and place.
// The returned error is fatal for the run; per-image failures are handled
// here and only reported in the Outcome.
func (o *Orchestrator) processImage(ctx context.Context, sess workbook.Session, rec workbook.ImageRecord) (Outcome, error) {
	start := time.Now()
	out := Outcome{ImageID: rec.ID, Sheet: rec.Anchor.Sheet, Cell: rec.Anchor.Cell, Redactions: []Redaction{}}
	log := o.logger.With(rec.ID)

	if rec.Format == imaging.Unknown {
		cause := &masking.MaskingError{
			Op:     "decode",
			Format: imaging.FormatFromExtension(rec.Extension),
			Err:    fmt.Errorf("%w: %s", imaging.ErrUnsupportedFormat, rec.Extension),
		}
		return o.fail(sess, rec, out, start, cause)
	}

	words, err := o.recognize(ctx, rec)
	if err != nil {
		return o.fail(sess, rec, out, start, err)
	}

	found := o.detector.Detect(words)
	out.Lines = detection.LineTexts(found.Lines)
	if len(found.Spans) == 0 {
		log.Debug("no sensitive text", "words", len(words))
		out.Status = StatusClean
		out.Duration = time.Since(start)
		return out, nil
	}

	masked, err := o.masker.Mask(rec.Data, rec.Format, found.Spans)
	if err != nil {
		return o.fail(sess, rec, out, start, err)
	}
	if !masked.Changed {
		out.Status = StatusClean
		out.Duration = time.Since(start)
		return out, nil
	}

	if masked.Format != rec.Format {
		log.Debug("masked copy re-encoded", "from", rec.Format, "to", masked.Format)
	}
	if err := sess.Replace(rec, masked.Data); err != nil {
		out.Status = StatusFailed
		out.Error = err.Error()
		return out, err
	}

	out.Redactions, out.Patterns = redactionsFrom(masked.Regions)
	out.Status = StatusMasked
	out.Duration = time.Since(start)
	log.Info("masked image", "anchor", rec.Anchor, "regions", len(masked.Regions), "patterns", out.Patterns)
	return out, nil
}

func (o *Orchestrator) recognize(ctx context.Context, rec workbook.ImageRecord) ([]ocr.Word, error) {
	if o.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.OCRTimeout)
		defer cancel()
	}
	return o.engine.Recognize(ctx, ocr.Input{ID: rec.ID, Image: rec.Data, Language: o.cfg.Lang})
}

// fail applies the error policy to a failed image.
func (o *Orchestrator) fail(sess workbook.Session, rec workbook.ImageRecord, out Outcome, start time.Time, cause error) (Outcome, error) {
	imgErr := &ImageError{ImageID: rec.ID, Anchor: rec.Anchor, Err: cause}
	out.Error = cause.Error()
	out.Duration = time.Since(start)
	log := o.logger.With(rec.ID)

	switch o.cfg.OnError {
	case config.PolicyFail:
		log.Error("image failed, aborting run", "anchor", rec.Anchor, "error", cause)
		out.Status = StatusFailed
		return out, fmt.Errorf("%w: %w", ErrAborted, imgErr)

	case config.PolicySkip:
		log.Warn("image failed, removing it", "anchor", rec.Anchor, "error", cause)
		out.Status = StatusSkipped
		if err := sess.Remove(rec); err != nil {
			return out, err
		}
		return out, nil

	default:
		log.Warn("image failed, keeping it unmasked", "anchor", rec.Anchor, "error", cause)
		out.Status = StatusFailed
		if !o.cfg.MarkFailures {
			return out, nil
		}
		flagged, err := masking.Flag(rec.Data, rec.Format)
		if err != nil {
			log.Warn("cannot mark failed image", "error", err)
			return out, nil
		}
		if err := sess.Replace(rec, flagged); err != nil {
			return out, err
		}
		return out, nil
	}
}
