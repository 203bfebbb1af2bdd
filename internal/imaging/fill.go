package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/clone"
)

// FillRects returns a copy of img with every rectangle painted in c.
// Rectangles are clipped to the image bounds; the source image is untouched.
func FillRects(img image.Image, rects []image.Rectangle, c color.Color) *image.RGBA {
	dst := clone.AsRGBA(img)
	src := image.NewUniform(opaque(c))
	for _, r := range rects {
		r = r.Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, src, image.Point{}, draw.Src)
	}
	return dst
}

// Border returns a copy of img with a frame of the given thickness painted
// along its edges.
func Border(img image.Image, thickness int, c color.Color) *image.RGBA {
	b := img.Bounds()
	if thickness < 1 {
		thickness = 1
	}
	if t := minInt(b.Dx(), b.Dy()) / 2; thickness > t && t > 0 {
		thickness = t
	}
	return FillRects(img, []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+thickness),
		image.Rect(b.Min.X, b.Max.Y-thickness, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+thickness, b.Max.Y),
		image.Rect(b.Max.X-thickness, b.Min.Y, b.Max.X, b.Max.Y),
	}, c)
}

// opaque drops any transparency so a fill can never let the text show through.
func opaque(c color.Color) color.RGBA {
	r, g, b, _ := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
