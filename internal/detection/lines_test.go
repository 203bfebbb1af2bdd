package detection

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ironsheep/sheet-redact/internal/ocr"
)

const charWidth = 7

// lineWords lays out text as words of one line starting at (x, y), 7 pixels
// per character and one character of spacing, like basicfont output.
func lineWords(text string, x, y, height int) []ocr.Word {
	var words []ocr.Word
	for _, tok := range strings.Fields(text) {
		w := len(tok) * charWidth
		words = append(words, ocr.Word{
			Text:       tok,
			Box:        ocr.Box{X: x, Y: y, Width: w, Height: height},
			Confidence: 90,
		})
		x += w + charWidth
	}
	return words
}

func TestGroupLines_OrderIndependent(t *testing.T) {
	words := append(lineWords("Host: example.com", 10, 10, 13),
		lineWords("X-API-Key: xyz789 trailing", 10, 30, 13)...)

	want := []string{"Host: example.com", "X-API-Key: xyz789 trailing"}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]ocr.Word(nil), words...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := LineTexts(GroupLines(shuffled))
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Fatalf("shuffle %d: got %q, want %q", i, got, want)
		}
	}
}

func TestGroupLines_Overlap(t *testing.T) {
	tests := []struct {
		name      string
		words     []ocr.Word
		wantLines int
	}{
		{
			name:      "empty",
			words:     nil,
			wantLines: 0,
		},
		{
			name: "baseline jitter stays on one line",
			words: []ocr.Word{
				{Text: "a", Box: ocr.Box{X: 0, Y: 10, Width: 5, Height: 10}},
				{Text: "b", Box: ocr.Box{X: 10, Y: 14, Width: 5, Height: 10}},
			},
			wantLines: 1,
		},
		{
			name: "under half overlap splits",
			words: []ocr.Word{
				{Text: "a", Box: ocr.Box{X: 0, Y: 10, Width: 5, Height: 10}},
				{Text: "b", Box: ocr.Box{X: 10, Y: 16, Width: 5, Height: 10}},
			},
			wantLines: 2,
		},
		{
			name: "small glyph inside tall word",
			words: []ocr.Word{
				{Text: "Tall", Box: ocr.Box{X: 0, Y: 0, Width: 20, Height: 40}},
				{Text: ".", Box: ocr.Box{X: 25, Y: 30, Width: 3, Height: 4}},
			},
			wantLines: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GroupLines(tt.words); len(got) != tt.wantLines {
				t.Errorf("got %d lines, want %d: %+v", len(got), tt.wantLines, got)
			}
		})
	}
}

func TestGroupLines_SortsByX(t *testing.T) {
	words := []ocr.Word{
		{Text: "value", Box: ocr.Box{X: 80, Y: 0, Width: 30, Height: 10}},
		{Text: "Cookie:", Box: ocr.Box{X: 5, Y: 1, Width: 50, Height: 10}},
	}
	lines := GroupLines(words)
	if len(lines) != 1 || lines[0].Text() != "Cookie: value" {
		t.Errorf("got %+v", LineTexts(lines))
	}
}

func TestLine_WordRange(t *testing.T) {
	line := Line{Words: lineWords("Authorization: Bearer abc123", 0, 0, 10)}
	// "Authorization: Bearer abc123"
	//  0             14     21
	tests := []struct {
		name        string
		start, end  int
		first, last int
		ok          bool
	}{
		{"whole line", 0, 28, 0, 2, true},
		{"exact middle word", 15, 21, 1, 1, true},
		{"starts mid word", 18, 28, 1, 2, true},
		{"ends mid word", 0, 3, 0, 0, true},
		{"separator only", 14, 15, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last, ok := line.wordRange(tt.start, tt.end)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (first != tt.first || last != tt.last) {
				t.Errorf("range = %d..%d, want %d..%d", first, last, tt.first, tt.last)
			}
		})
	}
}
