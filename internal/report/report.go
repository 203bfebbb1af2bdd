// Package report records what a masking run did: a JSON document for humans
// and tooling, and an optional Postgres audit trail.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/sheet-redact/internal/pipeline"
)

// Report is the JSON document written by --dump-json.
type Report struct {
	RunID    string        `json:"run_id"`
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Canceled bool          `json:"canceled,omitempty"`
	Totals   Totals        `json:"totals"`
	Images   []ImageReport `json:"images"`
	Patterns []string      `json:"patterns,omitempty"`
}

// Totals counts images by status.
type Totals struct {
	Images     int `json:"images"`
	Masked     int `json:"masked"`
	Clean      int `json:"clean"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Redactions int `json:"redactions"`
}

// ImageReport is one image's entry.
type ImageReport struct {
	ImageID    string               `json:"image_id"`
	Sheet      string               `json:"sheet"`
	Cell       string               `json:"cell"`
	Status     pipeline.Status      `json:"status"`
	Redactions []pipeline.Redaction `json:"redactions"`
	OCRLines   []string             `json:"ocr_lines"`
	Error      string               `json:"error,omitempty"`
}

// New builds a report for a finished run with a fresh run ID.
func New(summary *pipeline.Summary, patternNames []string) *Report {
	r := &Report{
		RunID:    uuid.New().String(),
		Input:    summary.Input,
		Output:   summary.Output,
		Started:  summary.Started,
		Finished: summary.Finished,
		Canceled: summary.Canceled,
		Patterns: patternNames,
		Images:   make([]ImageReport, 0, len(summary.Outcomes)),
	}
	for _, o := range summary.Outcomes {
		redactions := o.Redactions
		if redactions == nil {
			redactions = []pipeline.Redaction{}
		}
		lines := o.Lines
		if lines == nil {
			lines = []string{}
		}
		r.Images = append(r.Images, ImageReport{
			ImageID:    o.ImageID,
			Sheet:      o.Sheet,
			Cell:       o.Cell,
			Status:     o.Status,
			Redactions: redactions,
			OCRLines:   lines,
			Error:      o.Error,
		})
	}
	r.Totals = Totals{
		Images:     len(summary.Outcomes),
		Masked:     summary.Count(pipeline.StatusMasked),
		Clean:      summary.Count(pipeline.StatusClean),
		Failed:     summary.Count(pipeline.StatusFailed),
		Skipped:    summary.Count(pipeline.StatusSkipped),
		Redactions: summary.Redactions(),
	}
	return r
}

// WriteJSON writes the report, indented, to path.
func WriteJSON(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
