package workbook

import (
	"context"
	"fmt"
	"strings"

	"github.com/ironsheep/sheet-redact/internal/imaging"
)

// Anchor is where a picture sits. Row and Col are 1-based; offsets are pixels
// from the top-left corner of the cell.
type Anchor struct {
	Sheet   string `json:"sheet"`
	Cell    string `json:"cell"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	OffsetX int    `json:"offset_x"`
	OffsetY int    `json:"offset_y"`
	// Positioning is "twoCell", "oneCell" or "absolute" (how the picture
	// moves when cells are resized).
	Positioning string `json:"positioning,omitempty"`
}

// String renders the anchor for logs and error messages.
func (a Anchor) String() string {
	return fmt.Sprintf("%s!%s+(%d,%d)", a.Sheet, a.Cell, a.OffsetX, a.OffsetY)
}

// ImageRecord is one picture extracted from a workbook.
type ImageRecord struct {
	// ID is "<sheet>#<n>", n counting pictures of the sheet from 1 in
	// drawing order.
	ID     string `json:"image_id"`
	Anchor Anchor `json:"anchor"`
	// Seq is the picture's position among pictures anchored to the same cell.
	Seq       int            `json:"seq"`
	Data      []byte         `json:"-"`
	Format    imaging.Format `json:"format"`
	Extension string         `json:"extension"`
	// Width and Height are the displayed size in pixels.
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	AltText string `json:"alt_text,omitempty"`
}

// Store reads pictures from workbooks and opens sessions to write them back.
type Store interface {
	// Extract returns every picture on the selected sheets. A nil or "all"
	// selection means every sheet.
	Extract(ctx context.Context, path string, sheets []string) ([]ImageRecord, error)
	// Open starts an editing session on a copy of the workbook at path.
	Open(ctx context.Context, path string) (Session, error)
}

// Session edits one workbook. All methods are safe for concurrent use.
type Session interface {
	// Replace swaps the picture of rec for data, keeping its anchor.
	Replace(rec ImageRecord, data []byte) error
	// Remove deletes the picture of rec.
	Remove(rec ImageRecord) error
	// Save writes the edited workbook to output.
	Save(ctx context.Context, output string) error
	Close() error
}

// WriteWorkbook copies original to output with the pictures named in
// replacements (keyed by ImageRecord.ID) swapped in place. Everything else is
// left as it was.
func WriteWorkbook(ctx context.Context, store Store, original string, records []ImageRecord, replacements map[string][]byte, output string) error {
	sess, err := store.Open(ctx, original)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, rec := range records {
		data, ok := replacements[rec.ID]
		if !ok {
			continue
		}
		if err := sess.Replace(rec, data); err != nil {
			return err
		}
	}
	return sess.Save(ctx, output)
}

// selectSheets resolves a selection against the workbook's sheet list,
// preserving workbook order. Names match case-insensitively.
func selectSheets(available, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return available, nil
	}
	for _, r := range requested {
		if strings.EqualFold(strings.TrimSpace(r), "all") {
			return available, nil
		}
	}

	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		found := false
		for _, a := range available {
			if strings.EqualFold(a, strings.TrimSpace(r)) {
				want[a] = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, r)
		}
	}

	var out []string
	for _, a := range available {
		if want[a] {
			out = append(out, a)
		}
	}
	return out, nil
}
