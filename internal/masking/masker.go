package masking

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/ironsheep/sheet-redact/internal/detection"
	"github.com/ironsheep/sheet-redact/internal/imaging"
)

// DefaultPadding is the pixel padding added around every span.
const DefaultPadding = 4

// warningBorder is the thickness of the frame drawn on failed images.
const warningBorder = 6

// MaskingError reports an image that could not be decoded or re-encoded.
type MaskingError struct {
	Op     string
	Format imaging.Format
	Err    error
}

func (e *MaskingError) Error() string {
	return fmt.Sprintf("masking %s (%s): %v", e.Op, e.Format, e.Err)
}

func (e *MaskingError) Unwrap() error { return e.Err }

// Result is the outcome of Mask.
type Result struct {
	// Data is the image to store. It is the input slice itself when nothing
	// was masked.
	Data []byte
	// Format is the encoding of Data.
	Format  imaging.Format
	Regions []Region
	// Changed is false for pass-through results.
	Changed bool
}

// Masker burns opaque rectangles into images.
type Masker struct {
	Padding int
	Color   color.Color
}

// NewMasker creates a Masker with the given padding and fill color. A nil
// color means black.
func NewMasker(padding int, c color.Color) *Masker {
	if c == nil {
		c = color.Black
	}
	return &Masker{Padding: padding, Color: c}
}

// Mask hides every span in data, which is encoded as format. With no spans the
// input bytes are returned untouched and nothing is re-encoded. data itself is
// never modified.
func (m *Masker) Mask(data []byte, format imaging.Format, spans []detection.Span) (Result, error) {
	if len(spans) == 0 {
		return Result{Data: data, Format: format}, nil
	}

	img, err := imaging.Decode(data)
	if err != nil {
		return Result{}, &MaskingError{Op: "decode", Format: format, Err: err}
	}

	regions := Regions(spans, m.Padding, img.Bounds())
	if len(regions) == 0 {
		return Result{Data: data, Format: format}, nil
	}

	masked := imaging.FillRects(img, Rects(regions), m.Color)
	target := format.EncodeAs()
	out, err := imaging.Encode(masked, target)
	if err != nil {
		return Result{}, &MaskingError{Op: "encode", Format: format, Err: err}
	}
	return Result{Data: out, Format: target, Regions: regions, Changed: true}, nil
}

// Flag returns a copy of data with a warning border, used for images that are
// kept unmasked after a failure.
func Flag(data []byte, format imaging.Format) ([]byte, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, &MaskingError{Op: "decode", Format: format, Err: err}
	}
	out, err := imaging.Encode(imaging.Border(img, warningBorder, imaging.WarningColor), format.EncodeAs())
	if err != nil {
		return nil, &MaskingError{Op: "encode", Format: format, Err: err}
	}
	return out, nil
}

// IsMaskingError reports whether err is a MaskingError.
func IsMaskingError(err error) bool {
	var me *MaskingError
	return errors.As(err, &me)
}
