package artwork

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFetchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "art.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := png.Encode(f, testImage(8, 8, color.RGBA{R: 200, G: 40, B: 40, A: 255})); err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	f.Close()

	img, err := Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("unexpected image width %d", img.Bounds().Dx())
	}
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	if _, err := Fetch(context.Background(), ""); err == nil {
		t.Error("expected an error for an empty url")
	}
}

func TestExtractPaletteNilImage(t *testing.T) {
	p := ExtractPalette(nil)
	if p.Primary != DefaultPalette().Primary {
		t.Errorf("expected the default palette, got %+v", p)
	}
}

func TestRenderHalfBlockArt(t *testing.T) {
	img := testImage(16, 16, color.RGBA{R: 10, G: 200, B: 90, A: 255})

	lines := RenderHalfBlockArt(img, 8, 4)
	if len(lines) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(lines))
	}
	for i, line := range lines {
		if line == "" {
			t.Errorf("row %d is empty", i)
		}
	}

	if got := RenderHalfBlockArt(img, 2, 1); got != nil {
		t.Errorf("expected nil for a too-small target, got %v", got)
	}
	if got := RenderHalfBlockArt(nil, 8, 4); got != nil {
		t.Errorf("expected nil for a nil image, got %v", got)
	}
}
