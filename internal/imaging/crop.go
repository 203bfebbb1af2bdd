package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Tile is a horizontal slice of a larger image.
type Tile struct {
	Image image.Image
	// Offset is the position of the tile's top-left corner in the source.
	Offset image.Point
}

// Tiles splits img into horizontal bands no taller than maxHeight, each
// overlapping the previous one by overlap pixels. The step between tiles is
// never smaller than minStep. Images that already fit are returned as a
// single tile.
func Tiles(img image.Image, maxHeight, overlap, minStep int) []Tile {
	b := img.Bounds()
	if maxHeight <= 0 || b.Dy() <= maxHeight {
		return []Tile{{Image: img, Offset: image.Point{}}}
	}

	step := maxHeight - overlap
	if step < minStep {
		step = minStep
	}
	if step < 1 {
		step = 1
	}

	var tiles []Tile
	for top := 0; top < b.Dy(); top += step {
		bottom := top + maxHeight
		if bottom > b.Dy() {
			bottom = b.Dy()
		}
		rect := image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Min.Y+bottom)
		tiles = append(tiles, Tile{
			Image:  imaging.Crop(img, rect),
			Offset: image.Pt(0, top),
		})
		if bottom == b.Dy() {
			break
		}
	}
	return tiles
}

// Upscale enlarges images whose shorter side is below minSide by an integer
// factor so the OCR engine sees glyphs of a usable size. It returns the image
// to recognize and the factor applied (1 when untouched).
func Upscale(img image.Image, minSide int) (image.Image, int) {
	b := img.Bounds()
	if minSide <= 0 || (b.Dx() >= minSide && b.Dy() >= minSide) {
		return img, 1
	}
	factor := 2
	for factor < 4 && (b.Dx()*factor < minSide || b.Dy()*factor < minSide) {
		factor++
	}
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.Lanczos), factor
}
