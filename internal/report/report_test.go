package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/sheet-redact/internal/pipeline"
)

func testSummary() *pipeline.Summary {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &pipeline.Summary{
		Input:    "in.xlsx",
		Output:   "out.xlsx",
		Started:  start,
		Finished: start.Add(2 * time.Second),
		Outcomes: []pipeline.Outcome{
			{
				ImageID: "Data#1", Sheet: "Data", Cell: "B2", Status: pipeline.StatusMasked,
				Patterns: []string{"Authorization", "Bearer"},
				Redactions: []pipeline.Redaction{
					{X: 1, Y: 6, Width: 198, Height: 22, Patterns: []string{"Authorization", "Bearer"}},
				},
				Lines: []string{"Authorization: Bearer secret"},
			},
			{ImageID: "Data#2", Sheet: "Data", Cell: "D8", Status: pipeline.StatusClean},
			{ImageID: "Logs#1", Sheet: "Logs", Cell: "C3", Status: pipeline.StatusFailed, Error: "ocr of Logs#1 timed out"},
		},
	}
}

func TestNew(t *testing.T) {
	r := New(testSummary(), []string{"Authorization"})

	if _, err := uuid.Parse(r.RunID); err != nil {
		t.Errorf("expected a UUID run ID, got %q", r.RunID)
	}
	want := Totals{Images: 3, Masked: 1, Clean: 1, Failed: 1, Redactions: 1}
	if r.Totals != want {
		t.Errorf("expected totals %+v, got %+v", want, r.Totals)
	}
	if r.Images[1].Redactions == nil || r.Images[1].OCRLines == nil {
		t.Error("expected empty slices rather than nil for clean images")
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteJSON(path, New(testSummary(), nil)); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc struct {
		RunID  string `json:"run_id"`
		Images []struct {
			ImageID    string `json:"image_id"`
			Sheet      string `json:"sheet"`
			Cell       string `json:"cell"`
			Redactions []struct {
				X, Y, W, H int
				Patterns   []string `json:"patterns"`
			} `json:"redactions"`
			OCRLines []string `json:"ocr_lines"`
		} `json:"images"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if len(doc.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(doc.Images))
	}
	first := doc.Images[0]
	if first.ImageID != "Data#1" || first.Sheet != "Data" || first.Cell != "B2" {
		t.Errorf("unexpected identity: %+v", first)
	}
	if len(first.Redactions) != 1 || first.Redactions[0].W != 198 || first.Redactions[0].H != 22 {
		t.Errorf("unexpected redactions: %+v", first.Redactions)
	}
	if len(first.OCRLines) != 1 {
		t.Errorf("expected OCR line text, got %v", first.OCRLines)
	}
}

func TestAuditRows(t *testing.T) {
	rows := auditRows(New(testSummary(), nil))
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].redactions != 1 || len(rows[0].patterns) != 2 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].patterns == nil {
		t.Error("expected an empty pattern array for clean images")
	}
	if rows[2].err == "" || rows[2].status != "failed" {
		t.Errorf("unexpected failed row: %+v", rows[2])
	}
}
