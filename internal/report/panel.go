package report

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// panelGap is the width in pixels of the white column between panel tiles.
const panelGap = 2

// Panel lays h×w planes of values in [0,1] side by side as one grayscale
// image, e.g. pixelated input, known mask, target and prediction.
func Panel(h, w int, planes ...[]float32) (*image.Gray, error) {
	if h <= 0 || w <= 0 || len(planes) == 0 {
		return nil, fmt.Errorf("report: empty panel %dx%d with %d planes", h, w, len(planes))
	}
	width := len(planes)*w + (len(planes)-1)*panelGap
	img := image.NewGray(image.Rect(0, 0, width, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for p, plane := range planes {
		if len(plane) != h*w {
			return nil, fmt.Errorf("report: panel plane %d has %d values, want %d", p, len(plane), h*w)
		}
		x0 := p * (w + panelGap)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Pix[y*img.Stride+x0+x] = unitToByte(plane[y*w+x])
			}
		}
	}
	return img, nil
}

// SavePanel writes Panel(h, w, planes...) as a PNG.
func SavePanel(path string, h, w int, planes ...[]float32) error {
	img, err := Panel(h, w, planes...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: panel dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("report: encode %s: %w", path, err)
	}
	return f.Close()
}

func unitToByte(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)) || v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}
