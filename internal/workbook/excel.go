package workbook

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/ironsheep/sheet-redact/internal/imaging"
	"github.com/ironsheep/sheet-redact/internal/logging"
)

// Column and row sizes used when a sheet does not override them.
const (
	defaultColumnPixels = 64
	defaultRowPixels    = 20
	maxDigitWidth       = 7
)

// ExcelStore reads and writes Office Open XML workbooks (.xlsx, .xlsm).
type ExcelStore struct {
	logger *logging.Logger
}

// NewExcelStore creates an ExcelStore. A nil logger discards output.
func NewExcelStore(logger *logging.Logger) *ExcelStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ExcelStore{logger: logger}
}

// Extract returns the pictures of the selected sheets in drawing order.
// Pictures placed inside cells have no drawing anchor and are not returned.
func (s *ExcelStore) Extract(ctx context.Context, path string, sheets []string) ([]ImageRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &DocumentError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	selected, err := selectSheets(f.GetSheetList(), sheets)
	if err != nil {
		return nil, &DocumentError{Path: path, Op: "select sheets", Err: err}
	}

	pkg, err := openPackage(path)
	if err != nil {
		return nil, &DocumentError{Path: path, Op: "read drawings", Err: err}
	}
	defer pkg.Close()

	var records []ImageRecord
	for _, sheet := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, ok := pkg.drawings[sheet]
		if !ok {
			continue
		}
		for _, a := range d.Pictures {
			rec, err := s.newRecord(f, pkg, a)
			if err != nil {
				return nil, &DocumentError{Path: path, Sheet: sheet, Op: "extract " + a.ID, Err: err}
			}
			records = append(records, rec)
		}
	}
	s.logger.Debug("extracted pictures", "path", path, "sheets", len(selected), "pictures", len(records))
	return records, nil
}

func (s *ExcelStore) newRecord(f *excelize.File, pkg *packageReader, a *pictureAnchor) (ImageRecord, error) {
	data, err := pkg.readPart(a.Media)
	if err != nil {
		return ImageRecord{}, err
	}
	offX, offY := a.offsetPixels()
	rec := ImageRecord{
		ID: a.ID,
		Anchor: Anchor{
			Sheet:       a.Sheet,
			Cell:        a.Cell,
			Row:         a.From.Row + 1,
			Col:         a.From.Col + 1,
			OffsetX:     offX,
			OffsetY:     offY,
			Positioning: a.Positioning,
		},
		Seq:       a.Seq,
		Data:      data,
		Extension: path.Ext(a.Media),
		AltText:   a.Descr,
	}
	// An undecodable picture keeps Format Unknown; the pipeline decides
	// what happens to it.
	if format, err := imaging.DetectFormat(data); err == nil {
		rec.Format = format
	}
	rec.Width, rec.Height = displaySize(f, a, data)
	return rec, nil
}

// displaySize returns the size a picture is shown at. Two-cell anchors often
// carry no extent, so the span between their markers is measured instead.
func displaySize(f *excelize.File, a *pictureAnchor, data []byte) (int, int) {
	if w, h := a.extentPixels(); w > 0 && h > 0 {
		return w, h
	}
	if a.To != nil {
		w := spanPixels(a.From.Col, a.From.ColOff, a.To.Col, a.To.ColOff, func(col int) int {
			return columnPixels(f, a.Sheet, col)
		})
		h := spanPixels(a.From.Row, a.From.RowOff, a.To.Row, a.To.RowOff, func(row int) int {
			return rowPixels(f, a.Sheet, row)
		})
		if w > 0 && h > 0 {
			return w, h
		}
	}
	if w, h, err := imaging.Config(data); err == nil {
		return w, h
	}
	return 0, 0
}

// spanPixels measures from one marker to another along rows or columns.
func spanPixels(from int, fromOff int64, to int, toOff int64, size func(int) int) int {
	total := 0
	for i := from; i < to; i++ {
		total += size(i)
	}
	return total + int(toOff/emuPerPixel) - int(fromOff/emuPerPixel)
}

// columnPixels converts a stored column width (in characters, padding
// included) to pixels the way Excel does for the default font.
func columnPixels(f *excelize.File, sheet string, col int) int {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return defaultColumnPixels
	}
	width, err := f.GetColWidth(sheet, name)
	if err != nil {
		return defaultColumnPixels
	}
	return int((256*width + float64(128/maxDigitWidth)) / 256 * maxDigitWidth)
}

// rowPixels converts a row height in points to pixels at 96 DPI.
func rowPixels(f *excelize.File, sheet string, row int) int {
	height, err := f.GetRowHeight(sheet, row+1)
	if err != nil {
		return defaultRowPixels
	}
	return int(math.Round(height * 96 / 72))
}

// Open starts a session on the workbook at path. Edits become visible only
// in the file written by Save.
func (s *ExcelStore) Open(ctx context.Context, path string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkg, err := openPackage(path)
	if err != nil {
		return nil, &DocumentError{Path: path, Op: "open", Err: err}
	}
	return &excelSession{
		path:     path,
		pkg:      pkg,
		pictures: pkg.pictures(),
		edits:    make(map[string]*pictureEdit),
		logger:   s.logger,
	}, nil
}

type excelSession struct {
	mu       sync.Mutex
	path     string
	pkg      *packageReader
	pictures map[string]*pictureAnchor
	edits    map[string]*pictureEdit
	logger   *logging.Logger
	closed   bool
}

func (s *excelSession) Replace(rec ImageRecord, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("replace %s: empty picture", rec.ID)
	}
	return s.edit(rec, data)
}

func (s *excelSession) Remove(rec ImageRecord) error {
	return s.edit(rec, nil)
}

func (s *excelSession) edit(rec ImageRecord, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("session closed")
	}
	a, ok := s.pictures[rec.ID]
	if !ok || a.Sheet != rec.Anchor.Sheet {
		return &DocumentError{Path: s.path, Sheet: rec.Anchor.Sheet, Op: "edit " + rec.ID, Err: ErrPictureMissing}
	}
	s.edits[rec.ID] = &pictureEdit{anchor: a, data: data}
	return nil
}

// Save writes the workbook with every edit applied to output. Parts that
// were not edited are copied unchanged, and a replaced picture's original
// bytes are dropped once nothing refers to them.
func (s *excelSession) Save(ctx context.Context, output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("session closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	edits := make([]*pictureEdit, 0, len(s.edits))
	for _, e := range s.edits {
		edits = append(edits, e)
	}
	sort.Slice(edits, func(i, j int) bool {
		a, b := edits[i].anchor, edits[j].anchor
		if a.Drawing != b.Drawing {
			return a.Drawing < b.Drawing
		}
		return a.start < b.start
	})

	w := newPackageWriter(s.pkg)
	if err := w.apply(edits); err != nil {
		return &DocumentError{Path: s.path, Op: "place pictures", Err: err}
	}
	if err := w.write(output); err != nil {
		return &DocumentError{Path: output, Op: "save", Err: err}
	}
	s.logger.Debug("saved workbook", "output", output, "edits", len(edits), "dropped", len(w.dropped))
	return nil
}

func (s *excelSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.pkg.Close()
}
