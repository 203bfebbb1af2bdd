package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestTiles(t *testing.T) {
	tests := []struct {
		name        string
		height      int
		maxHeight   int
		overlap     int
		minStep     int
		wantOffsets []int
	}{
		{"fits", 100, 200, 10, 50, []int{0}},
		{"disabled", 1000, 0, 10, 50, []int{0}},
		{"two tiles", 300, 200, 20, 50, []int{0, 180}},
		{"min step wins", 300, 100, 90, 50, []int{0, 50, 100, 150, 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createTestImage(10, tt.height, color.White)
			tiles := Tiles(img, tt.maxHeight, tt.overlap, tt.minStep)
			if len(tiles) != len(tt.wantOffsets) {
				t.Fatalf("got %d tiles, want %d", len(tiles), len(tt.wantOffsets))
			}
			covered := 0
			for i, tile := range tiles {
				if tile.Offset.Y != tt.wantOffsets[i] {
					t.Errorf("tile %d offset = %d, want %d", i, tile.Offset.Y, tt.wantOffsets[i])
				}
				if tt.maxHeight > 0 && tile.Image.Bounds().Dy() > tt.maxHeight {
					t.Errorf("tile %d height %d exceeds %d", i, tile.Image.Bounds().Dy(), tt.maxHeight)
				}
				if end := tile.Offset.Y + tile.Image.Bounds().Dy(); end > covered {
					covered = end
				}
			}
			if covered != tt.height {
				t.Errorf("tiles cover %d rows, want %d", covered, tt.height)
			}
		})
	}
}

func TestUpscale(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		minSide    int
		wantFactor int
	}{
		{"large enough", 400, 400, 300, 1},
		{"disabled", 10, 10, 0, 1},
		{"short banner", 600, 120, 300, 3},
		{"tiny", 20, 20, 300, 4},
		{"just under", 200, 500, 300, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createTestImage(tt.w, tt.h, color.White)
			out, factor := Upscale(img, tt.minSide)
			if factor != tt.wantFactor {
				t.Fatalf("factor = %d, want %d", factor, tt.wantFactor)
			}
			want := image.Rect(0, 0, tt.w*factor, tt.h*factor)
			if out.Bounds().Size() != want.Size() {
				t.Errorf("size = %v, want %v", out.Bounds().Size(), want.Size())
			}
		})
	}
}
