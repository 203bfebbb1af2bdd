package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Box is an axis-aligned rectangle in pixel coordinates, origin top-left.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// BoxFromRect converts an image.Rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Word is one recognized word.
type Word struct {
	Text string `json:"text"`
	Box  Box    `json:"box"`
	// Confidence is the engine's score between 0 and 100.
	Confidence float64 `json:"confidence"`
}

// Input is one image to recognize.
type Input struct {
	// ID identifies the image in errors and logs.
	ID string
	// Image holds the encoded image bytes (PNG, JPEG, GIF, BMP or TIFF).
	Image []byte
	// Language is a tesseract language spec such as "eng" or "eng+deu".
	Language string
}

// Engine recognizes words in images.
type Engine interface {
	Name() string
	// Available reports whether the engine can run with the given language.
	Available(ctx context.Context, lang string) error
	// Recognize returns the words found in the image. An image without text
	// yields an empty slice and no error.
	Recognize(ctx context.Context, in Input) ([]Word, error)
}

// ErrUnavailable is matched by every error reporting that the engine cannot
// be invoked at all.
var ErrUnavailable = errors.New("ocr engine unavailable")

// ErrEmptyImage is returned for inputs without bytes.
var ErrEmptyImage = errors.New("empty image")

// UnavailableError describes why an engine cannot run.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s OCR backend unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnavailable) true for every UnavailableError.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Failure is a recoverable, per-image recognition error.
type Failure struct {
	ImageID string
	Timeout bool
	Err     error
}

func (e *Failure) Error() string {
	if e.Timeout {
		return fmt.Sprintf("ocr of %s timed out: %v", e.ImageID, e.Err)
	}
	return fmt.Sprintf("ocr of %s failed: %v", e.ImageID, e.Err)
}

func (e *Failure) Unwrap() error { return e.Err }

// wrapRunError classifies an error raised while an engine was running.
func wrapRunError(ctx context.Context, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Failure{ImageID: id, Timeout: errors.Is(ctxErr, context.DeadlineExceeded), Err: ctxErr}
	}
	return &Failure{ImageID: id, Err: err}
}
