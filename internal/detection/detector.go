package detection

import (
	"image"
	"sort"
	"strings"

	"github.com/ironsheep/sheet-redact/internal/ocr"
	"github.com/ironsheep/sheet-redact/internal/patterns"
)

// Span is a contiguous run of words on one line that matched at least one
// pattern.
type Span struct {
	Line     int        `json:"line"`
	LineText string     `json:"line_text"`
	Words    []ocr.Word `json:"words"`
	// Patterns names every rule that matched these words, primary first.
	Patterns []string `json:"patterns"`

	first, last int
}

// Text returns the matched words joined with spaces.
func (s Span) Text() string {
	parts := make([]string, len(s.Words))
	for i, w := range s.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// Bounds returns the union of the word boxes.
func (s Span) Bounds() image.Rectangle {
	var r image.Rectangle
	for i, w := range s.Words {
		if i == 0 {
			r = w.Box.Rect()
			continue
		}
		r = r.Union(w.Box.Rect())
	}
	return r
}

// Detector finds sensitive spans in OCR output. It holds no per-image state
// and may be shared between goroutines.
type Detector struct {
	registry      *patterns.Registry
	minConfidence float64
}

// NewDetector creates a Detector. Spans whose words all score below
// minConfidence are discarded; one confident word keeps the whole span.
func NewDetector(registry *patterns.Registry, minConfidence float64) *Detector {
	return &Detector{registry: registry, minConfidence: minConfidence}
}

// Result bundles the lines a detection ran over with the spans it found.
type Result struct {
	Lines []Line
	Spans []Span
}

// Detect groups words into lines and matches every line. Empty input yields
// no spans.
func (d *Detector) Detect(words []ocr.Word) Result {
	lines := GroupLines(words)
	return Result{Lines: lines, Spans: d.DetectLines(lines)}
}

// DetectLines matches already grouped lines.
func (d *Detector) DetectLines(lines []Line) []Span {
	var spans []Span
	for _, line := range lines {
		spans = append(spans, d.detectLine(line)...)
	}
	return spans
}

func (d *Detector) detectLine(line Line) []Span {
	text := line.Text()
	var candidates []Span
	for _, m := range d.registry.Match(text) {
		first, last, ok := line.wordRange(m.Start, m.End)
		if !ok {
			continue
		}
		candidates = append(candidates, Span{
			Line:     line.Index,
			LineText: text,
			Patterns: []string{m.Pattern.Name},
			first:    first,
			last:     last,
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	merged := mergeSpans(candidates)
	out := merged[:0]
	for _, s := range merged {
		s.Words = append([]ocr.Word(nil), line.Words[s.first:s.last+1]...)
		if d.confident(s.Words) {
			out = append(out, s)
		}
	}
	return out
}

func (d *Detector) confident(words []ocr.Word) bool {
	if d.minConfidence <= 0 {
		return true
	}
	for _, w := range words {
		if w.Confidence >= d.minConfidence {
			return true
		}
	}
	return false
}

// mergeSpans unions spans on the same line that share at least one word.
// The pattern list keeps first-seen order without duplicates.
func mergeSpans(spans []Span) []Span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].first != spans[j].first {
			return spans[i].first < spans[j].first
		}
		return spans[i].last > spans[j].last
	})

	merged := []Span{spans[0]}
	for _, s := range spans[1:] {
		cur := &merged[len(merged)-1]
		if s.first > cur.last {
			merged = append(merged, s)
			continue
		}
		if s.last > cur.last {
			cur.last = s.last
		}
		for _, name := range s.Patterns {
			if !containsString(cur.Patterns, name) {
				cur.Patterns = append(cur.Patterns, name)
			}
		}
	}
	return merged
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
