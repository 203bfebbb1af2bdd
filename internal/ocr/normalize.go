package ocr

import (
	"image"
	"math"
	"sort"
	"strings"
)

// rawWord is a word as an engine reported it, in the coordinate space of the
// buffer the engine was given.
type rawWord struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// frame describes how an engine buffer relates to the original image.
type frame struct {
	// Offset is the tile's top-left corner in the (possibly scaled) image.
	Offset image.Point
	// Scale is the upscale factor applied before OCR.
	Scale int
	// BottomLeft is set when the engine measures Y upward from the bottom of
	// the buffer; Height is that buffer's height.
	BottomLeft bool
	Height     int
	// Bounds are the original image bounds words are clipped to.
	Bounds image.Rectangle
}

// normalize maps engine words back into original image space.
func normalize(raw []rawWord, f frame) []Word {
	scale := f.Scale
	if scale < 1 {
		scale = 1
	}

	words := make([]Word, 0, len(raw))
	for _, w := range raw {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}

		r := w.Box.Canon()
		if f.BottomLeft {
			r = image.Rect(r.Min.X, f.Height-r.Max.Y, r.Max.X, f.Height-r.Min.Y)
		}
		r = r.Add(f.Offset)
		r = image.Rect(
			floorDiv(r.Min.X, scale), floorDiv(r.Min.Y, scale),
			ceilDiv(r.Max.X, scale), ceilDiv(r.Max.Y, scale),
		)
		r = r.Intersect(f.Bounds)
		if r.Empty() {
			continue
		}

		words = append(words, Word{
			Text:       text,
			Box:        BoxFromRect(r),
			Confidence: clampConfidence(w.Confidence),
		})
	}
	return words
}

// dedupe removes words reported twice where tiles overlap: same text and
// boxes overlapping by at least half of the smaller one.
func dedupe(words []Word) []Word {
	if len(words) < 2 {
		return words
	}
	sort.SliceStable(words, func(i, j int) bool {
		if words[i].Box.Y != words[j].Box.Y {
			return words[i].Box.Y < words[j].Box.Y
		}
		return words[i].Box.X < words[j].Box.X
	})

	out := make([]Word, 0, len(words))
	for _, w := range words {
		dup := false
		for i := range out {
			if !strings.EqualFold(out[i].Text, w.Text) {
				continue
			}
			if overlapRatio(out[i].Box.Rect(), w.Box.Rect()) >= 0.5 {
				if w.Confidence > out[i].Confidence {
					out[i] = w
				}
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, w)
		}
	}
	return out
}

func overlapRatio(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	smaller := math.Min(float64(a.Dx()*a.Dy()), float64(b.Dx()*b.Dy()))
	if smaller == 0 {
		return 0
	}
	return float64(inter.Dx()*inter.Dy()) / smaller
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && (a < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && (a > 0) {
		q++
	}
	return q
}
