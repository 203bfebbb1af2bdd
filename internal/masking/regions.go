package masking

import (
	"image"

	"github.com/ironsheep/sheet-redact/internal/detection"
)

// Region is a final rectangle to fill, with the spans it hides.
type Region struct {
	Rect    image.Rectangle  `json:"rect"`
	Sources []detection.Span `json:"sources"`
}

// Regions converts spans into padded rectangles clipped to bounds and merges
// every pair that overlaps or touches, until a fixed point.
func Regions(spans []detection.Span, padding int, bounds image.Rectangle) []Region {
	if padding < 0 {
		padding = 0
	}

	regions := make([]Region, 0, len(spans))
	for _, s := range spans {
		r := s.Bounds()
		if r.Empty() {
			continue
		}
		r = r.Inset(-padding).Intersect(bounds)
		if r.Empty() {
			continue
		}
		regions = append(regions, Region{Rect: r, Sources: []detection.Span{s}})
	}
	return mergeRegions(regions)
}

// mergeRegions repeats pairwise merging until no two regions touch.
func mergeRegions(regions []Region) []Region {
	for {
		merged := false
		for i := 0; i < len(regions) && !merged; i++ {
			for j := i + 1; j < len(regions); j++ {
				if !regionsTouch(regions[i].Rect, regions[j].Rect) {
					continue
				}
				regions[i].Rect = regions[i].Rect.Union(regions[j].Rect)
				regions[i].Sources = append(regions[i].Sources, regions[j].Sources...)
				regions = append(regions[:j], regions[j+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			return regions
		}
	}
}

// regionsTouch reports whether two rectangles overlap or share an edge or
// corner. Rectangles are half-open, so touching means Max == Min.
func regionsTouch(a, b image.Rectangle) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}

// Rects extracts the rectangles.
func Rects(regions []Region) []image.Rectangle {
	out := make([]image.Rectangle, len(regions))
	for i, r := range regions {
		out[i] = r.Rect
	}
	return out
}
