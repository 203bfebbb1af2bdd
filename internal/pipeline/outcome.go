package pipeline

import (
	"time"

	"github.com/ironsheep/sheet-redact/internal/masking"
)

// Status is the result of processing one image.
type Status string

const (
	// StatusMasked means at least one region was masked.
	StatusMasked Status = "masked"
	// StatusClean means no sensitive text was found; the image is unchanged.
	StatusClean Status = "clean"
	// StatusFailed means the image was kept after a failure.
	StatusFailed Status = "failed"
	// StatusSkipped means the image was removed after a failure.
	StatusSkipped Status = "skipped"
	// StatusCanceled means the run stopped before the image was dispatched.
	StatusCanceled Status = "canceled"
)

// Redaction is one masked rectangle.
type Redaction struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Width    int      `json:"w"`
	Height   int      `json:"h"`
	Patterns []string `json:"patterns"`
}

// Outcome describes what happened to one image.
type Outcome struct {
	ImageID    string        `json:"image_id"`
	Sheet      string        `json:"sheet"`
	Cell       string        `json:"cell"`
	Status     Status        `json:"status"`
	Patterns   []string      `json:"patterns,omitempty"`
	Redactions []Redaction   `json:"redactions"`
	Lines      []string      `json:"ocr_lines,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// Summary is the result of a run.
type Summary struct {
	Input    string    `json:"input"`
	Output   string    `json:"output"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Canceled bool      `json:"canceled,omitempty"`
	Outcomes []Outcome `json:"images"`
}

// Count returns the number of outcomes with the given status.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Redactions returns the total number of masked rectangles.
func (s *Summary) Redactions() int {
	n := 0
	for _, o := range s.Outcomes {
		n += len(o.Redactions)
	}
	return n
}

func redactionsFrom(regions []masking.Region) ([]Redaction, []string) {
	out := make([]Redaction, 0, len(regions))
	var all []string
	seen := make(map[string]bool)
	for _, r := range regions {
		var names []string
		local := make(map[string]bool)
		for _, span := range r.Sources {
			for _, p := range span.Patterns {
				if !local[p] {
					local[p] = true
					names = append(names, p)
				}
				if !seen[p] {
					seen[p] = true
					all = append(all, p)
				}
			}
		}
		out = append(out, Redaction{
			X:        r.Rect.Min.X,
			Y:        r.Rect.Min.Y,
			Width:    r.Rect.Dx(),
			Height:   r.Rect.Dy(),
			Patterns: names,
		})
	}
	return out, all
}
