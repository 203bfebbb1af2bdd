package ocr

import (
	"image"
	"testing"
)

func TestNormalize(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)

	tests := []struct {
		name  string
		raw   rawWord
		frame frame
		want  []Word
	}{
		{
			name:  "identity",
			raw:   rawWord{Text: "Host:", Box: image.Rect(10, 5, 40, 15), Confidence: 88},
			frame: frame{Scale: 1, Bounds: bounds},
			want:  []Word{{Text: "Host:", Box: Box{10, 5, 30, 10}, Confidence: 88}},
		},
		{
			name:  "bottom-left origin",
			raw:   rawWord{Text: "a", Box: image.Rect(10, 30, 20, 40), Confidence: 50},
			frame: frame{Scale: 1, BottomLeft: true, Height: 50, Bounds: bounds},
			want:  []Word{{Text: "a", Box: Box{10, 10, 10, 10}, Confidence: 50}},
		},
		{
			name:  "upscaled rounds outward",
			raw:   rawWord{Text: "b", Box: image.Rect(21, 11, 41, 31), Confidence: 70},
			frame: frame{Scale: 2, Bounds: bounds},
			want:  []Word{{Text: "b", Box: Box{10, 5, 11, 11}, Confidence: 70}},
		},
		{
			name:  "tile offset",
			raw:   rawWord{Text: "c", Box: image.Rect(0, 0, 10, 10), Confidence: 70},
			frame: frame{Scale: 1, Offset: image.Pt(0, 30), Bounds: bounds},
			want:  []Word{{Text: "c", Box: Box{0, 30, 10, 10}, Confidence: 70}},
		},
		{
			name:  "clipped to bounds",
			raw:   rawWord{Text: "d", Box: image.Rect(90, 45, 120, 60), Confidence: 70},
			frame: frame{Scale: 1, Bounds: bounds},
			want:  []Word{{Text: "d", Box: Box{90, 45, 10, 5}, Confidence: 70}},
		},
		{
			name:  "outside bounds dropped",
			raw:   rawWord{Text: "e", Box: image.Rect(200, 200, 210, 210), Confidence: 70},
			frame: frame{Scale: 1, Bounds: bounds},
			want:  nil,
		},
		{
			name:  "whitespace text dropped",
			raw:   rawWord{Text: "  ", Box: image.Rect(0, 0, 10, 10), Confidence: 95},
			frame: frame{Scale: 1, Bounds: bounds},
			want:  nil,
		},
		{
			name:  "zero area dropped",
			raw:   rawWord{Text: "f", Box: image.Rect(5, 5, 5, 10), Confidence: 95},
			frame: frame{Scale: 1, Bounds: bounds},
			want:  nil,
		},
		{
			name:  "confidence clamped",
			raw:   rawWord{Text: "g", Box: image.Rect(0, 0, 5, 5), Confidence: 140},
			frame: frame{Scale: 1, Bounds: bounds},
			want:  []Word{{Text: "g", Box: Box{0, 0, 5, 5}, Confidence: 100}},
		},
		{
			name:  "low confidence kept",
			raw:   rawWord{Text: "h", Box: image.Rect(0, 0, 5, 5), Confidence: 3},
			frame: frame{Scale: 1, Bounds: bounds},
			want:  []Word{{Text: "h", Box: Box{0, 0, 5, 5}, Confidence: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize([]rawWord{tt.raw}, tt.frame)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d words %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("word %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	words := []Word{
		{Text: "Cookie:", Box: Box{10, 100, 50, 10}, Confidence: 80},
		{Text: "session=1", Box: Box{70, 100, 60, 10}, Confidence: 85},
		// same word seen again by the next tile, shifted by a pixel
		{Text: "cookie:", Box: Box{10, 101, 50, 10}, Confidence: 90},
		// same text elsewhere is a different word
		{Text: "Cookie:", Box: Box{10, 300, 50, 10}, Confidence: 70},
	}

	got := dedupe(words)
	if len(got) != 3 {
		t.Fatalf("got %d words, want 3: %+v", len(got), got)
	}
	if got[0].Confidence != 90 {
		t.Errorf("duplicate should keep the more confident reading, got %+v", got[0])
	}
}

func TestBoxRectRoundTrip(t *testing.T) {
	b := Box{X: 3, Y: 4, Width: 10, Height: 6}
	if got := BoxFromRect(b.Rect()); got != b {
		t.Errorf("BoxFromRect(Rect()) = %+v, want %+v", got, b)
	}
}

func TestDivRounding(t *testing.T) {
	tests := []struct {
		a, b      int
		floor, ce int
	}{
		{10, 2, 5, 5},
		{11, 2, 5, 6},
		{-1, 2, -1, 0},
		{0, 3, 0, 0},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.floor {
			t.Errorf("floorDiv(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.floor)
		}
		if got := ceilDiv(tt.a, tt.b); got != tt.ce {
			t.Errorf("ceilDiv(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.ce)
		}
	}
}
