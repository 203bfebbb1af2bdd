//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

const libraryBuilt = true

// LibraryEngine runs libtesseract in-process through gosseract.
type LibraryEngine struct {
	opts          Options
	clientFactory func() *gosseract.Client
	limiter       *callLimiter
}

func newLibraryEngine(opts Options) (Engine, error) {
	return &LibraryEngine{
		opts:          opts,
		clientFactory: gosseract.NewClient,
		limiter:       newCallLimiter(opts.MaxInFlight),
	}, nil
}

func (e *LibraryEngine) Name() string { return BackendLibrary }

// Available recognizes a blank image to make sure the language data loads.
func (e *LibraryEngine) Available(ctx context.Context, lang string) error {
	blank := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range blank.Pix {
		blank.Pix[i] = color.White.Y
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, blank); err != nil {
		return err
	}
	if _, err := e.run(ctx, lang, buf.Bytes()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &UnavailableError{Backend: e.Name(), Err: err}
	}
	return nil
}

// Version returns the linked libtesseract version.
func (e *LibraryEngine) Version(ctx context.Context) (string, error) {
	c := e.clientFactory()
	defer c.Close()
	return c.Version(), nil
}

// Recognize runs OCR on every tile of the image.
func (e *LibraryEngine) Recognize(ctx context.Context, in Input) ([]Word, error) {
	return recognizeTiled(ctx, in, e.opts, func(ctx context.Context, data []byte) ([]rawWord, bool, error) {
		words, err := e.run(ctx, in.Language, data)
		return words, false, err
	})
}

// run performs one OCR call. The cgo call cannot be interrupted, so a
// cancelled context abandons it while it keeps its limiter slot until
// libtesseract returns.
func (e *LibraryEngine) run(ctx context.Context, lang string, data []byte) ([]rawWord, error) {
	return e.limiter.do(ctx, func() ([]rawWord, error) {
		return e.recognizeWithClient(lang, data)
	})
}

func (e *LibraryEngine) recognizeWithClient(lang string, data []byte) ([]rawWord, error) {
	c := e.clientFactory()
	defer c.Close()

	if e.opts.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if lang != "" {
		if err := c.SetLanguage(lang); err != nil {
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	if e.opts.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.opts.PageSegMode)); err != nil {
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("get bounding boxes: %w", err)
	}

	words := make([]rawWord, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, rawWord{
			Text:       b.Word,
			Box:        b.Box,
			Confidence: b.Confidence,
		})
	}
	return words, nil
}
