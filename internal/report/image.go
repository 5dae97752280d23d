package report

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
)

// ShapeError reports a flattened prediction whose length is not a perfect
// square.
type ShapeError struct {
	Length int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("report: prediction of length %d is not a square image", e.Length)
}

// Reshape turns a row-major flattened square prediction into an image.
func Reshape(flat []uint8) (*image.Gray, error) {
	side := int(math.Sqrt(float64(len(flat))))
	for side*side > len(flat) {
		side--
	}
	for (side+1)*(side+1) <= len(flat) {
		side++
	}
	if side == 0 || side*side != len(flat) {
		return nil, &ShapeError{Length: len(flat)}
	}
	img := image.NewGray(image.Rect(0, 0, side, side))
	copy(img.Pix, flat)
	return img, nil
}

// SavePrediction writes a flattened square prediction as a PNG.
func SavePrediction(path string, flat []uint8) error {
	img, err := Reshape(flat)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
