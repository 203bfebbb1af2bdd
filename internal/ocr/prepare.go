package ocr

import (
	"context"
	"fmt"

	"github.com/ironsheep/sheet-redact/internal/imaging"
)

// Preprocessing defaults.
const (
	DefaultMinSide       = 300
	DefaultMaxTileHeight = 7000
	DefaultTileOverlap   = 40
	minTileStep          = 1000
)

// tileFunc recognizes one PNG-encoded buffer and returns words in that
// buffer's coordinates.
type tileFunc func(ctx context.Context, png []byte) ([]rawWord, bool, error)

// recognizeTiled prepares the image, runs fn over every tile and returns the
// normalized words, de-duplicated across tile overlaps. fn reports whether its Y axis is
// bottom-up.
func recognizeTiled(ctx context.Context, in Input, opts Options, fn tileFunc) ([]Word, error) {
	if len(in.Image) == 0 {
		return nil, &Failure{ImageID: in.ID, Err: ErrEmptyImage}
	}

	img, err := imaging.Decode(in.Image)
	if err != nil {
		return nil, &Failure{ImageID: in.ID, Err: err}
	}
	bounds := img.Bounds()

	minSide := opts.MinSide
	if !opts.Upscale {
		minSide = 0
	}
	scaled, factor := imaging.Upscale(img, minSide)

	tiles := imaging.Tiles(scaled, opts.MaxTileHeight, opts.TileOverlap, minTileStep)
	var words []Word
	for _, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return nil, wrapRunError(ctx, in.ID, err)
		}

		data, err := imaging.Encode(tile.Image, imaging.PNG)
		if err != nil {
			return nil, &Failure{ImageID: in.ID, Err: fmt.Errorf("encode tile: %w", err)}
		}

		raw, bottomLeft, err := fn(ctx, data)
		if err != nil {
			return nil, wrapRunError(ctx, in.ID, err)
		}

		words = append(words, normalize(raw, frame{
			Offset:     tile.Offset,
			Scale:      factor,
			BottomLeft: bottomLeft,
			Height:     tile.Image.Bounds().Dy(),
			Bounds:     bounds,
		})...)
	}
	if len(tiles) > 1 {
		words = dedupe(words)
	}
	return words, nil
}
