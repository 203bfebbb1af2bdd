package detection

import (
	"sort"
	"strings"

	"github.com/ironsheep/sheet-redact/internal/ocr"
)

// minLineOverlap is the fraction of the shorter height two boxes must share
// vertically to sit on the same line.
const minLineOverlap = 0.5

// Line is a row of recognized words ordered left to right.
type Line struct {
	Index int        `json:"index"`
	Words []ocr.Word `json:"words"`
}

// Text joins the words with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// wordRange maps the byte range [start, end) of Text() to the first and last
// word it touches. A range that starts or ends inside a word takes the whole
// word. ok is false when the range covers only separators.
func (l Line) wordRange(start, end int) (first, last int, ok bool) {
	first, last = -1, -1
	pos := 0
	for i, w := range l.Words {
		wStart, wEnd := pos, pos+len(w.Text)
		if wStart < end && wEnd > start {
			if first < 0 {
				first = i
			}
			last = i
		}
		pos = wEnd + 1
	}
	return first, last, first >= 0
}

type band struct {
	top, bottom float64
	words       []ocr.Word
}

func (b *band) add(w ocr.Word) {
	n := float64(len(b.words))
	b.top = (b.top*n + float64(w.Box.Y)) / (n + 1)
	b.bottom = (b.bottom*n + float64(w.Box.Y+w.Box.Height)) / (n + 1)
	b.words = append(b.words, w)
}

// overlap returns the vertical overlap between w and the band divided by the
// shorter of the two heights.
func (b *band) overlap(w ocr.Word) float64 {
	top, bottom := float64(w.Box.Y), float64(w.Box.Y+w.Box.Height)
	shared := minFloat(bottom, b.bottom) - maxFloat(top, b.top)
	shorter := minFloat(bottom-top, b.bottom-b.top)
	if shared <= 0 || shorter <= 0 {
		return 0
	}
	return shared / shorter
}

// GroupLines clusters words into lines by vertical overlap. The result does
// not depend on the order words arrive in.
func GroupLines(words []ocr.Word) []Line {
	if len(words) == 0 {
		return nil
	}

	sorted := append([]ocr.Word(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ca, cb := 2*a.Box.Y+a.Box.Height, 2*b.Box.Y+b.Box.Height
		if ca != cb {
			return ca < cb
		}
		if a.Box.X != b.Box.X {
			return a.Box.X < b.Box.X
		}
		return a.Text < b.Text
	})

	var bands []*band
	for _, w := range sorted {
		best, bestOverlap := -1, 0.0
		for i, b := range bands {
			if ov := b.overlap(w); ov >= minLineOverlap && ov > bestOverlap {
				best, bestOverlap = i, ov
			}
		}
		if best < 0 {
			b := &band{}
			b.add(w)
			bands = append(bands, b)
			continue
		}
		bands[best].add(w)
	}

	for _, b := range bands {
		sort.SliceStable(b.words, func(i, j int) bool {
			if b.words[i].Box.X != b.words[j].Box.X {
				return b.words[i].Box.X < b.words[j].Box.X
			}
			return b.words[i].Box.Y < b.words[j].Box.Y
		})
	}
	sort.SliceStable(bands, func(i, j int) bool {
		if bands[i].top != bands[j].top {
			return bands[i].top < bands[j].top
		}
		return bands[i].words[0].Box.X < bands[j].words[0].Box.X
	})

	lines := make([]Line, len(bands))
	for i, b := range bands {
		lines[i] = Line{Index: i, Words: b.words}
	}
	return lines
}

// LineTexts returns the text of every line, for reports.
func LineTexts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text()
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
