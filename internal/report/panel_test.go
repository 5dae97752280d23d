package report

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPanelLaysOutTiles(t *testing.T) {
	left := []float32{0, 1, 0.5, 2}
	right := []float32{1, 1, 1, -1}
	img, err := Panel(2, 2, left, right)
	if err != nil {
		t.Fatalf("Panel: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2*2+panelGap || b.Dy() != 2 {
		t.Fatalf("bounds %v", b)
	}
	checks := []struct {
		x, y int
		want uint8
	}{
		{0, 0, 0},
		{1, 0, 255},
		{0, 1, 128},
		{1, 1, 255}, // clamped
		{2, 0, 255}, // gap
		{4, 0, 255},
		{5, 1, 0}, // clamped
	}
	for _, c := range checks {
		if got := img.GrayAt(c.x, c.y).Y; got != c.want {
			t.Fatalf("pixel (%d,%d)=%d want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestPanelRejectsMismatchedPlane(t *testing.T) {
	if _, err := Panel(2, 2, []float32{0, 0, 0}); err == nil {
		t.Fatal("expected error for short plane")
	}
	if _, err := Panel(2, 2); err == nil {
		t.Fatal("expected error without planes")
	}
}

func TestSavePanelWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panels", "sample.png")
	if err := SavePanel(path, 1, 1, []float32{0.2}, []float32{0.8}); err != nil {
		t.Fatalf("SavePanel: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 2+panelGap {
		t.Fatalf("width %d", img.Bounds().Dx())
	}
}
