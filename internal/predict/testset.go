// Package predict runs a trained model over the fixed test set and writes the
// submission.
package predict

import (
	"fmt"
	"os"

	"github.com/openfluke/loom/nn"
)

// Tensor names inside the test-set archive.
const (
	keyPixelated = "pixelated_images"
	keyKnown     = "known_arrays"
)

// TestSet holds parallel lists of pixelated images (0..255) and known masks
// (0 or 1), each Height*Width values, row-major.
type TestSet struct {
	Height    int
	Width     int
	Pixelated [][]float32
	Known     [][]float32
}

// Len is the number of test samples.
func (ts TestSet) Len() int { return len(ts.Pixelated) }

// LoadTestSet reads a safetensors archive holding pixelated_images and
// known_arrays, both shaped [N,1,H,W] or [N,H,W].
func LoadTestSet(path string) (TestSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TestSet{}, fmt.Errorf("predict: read test set: %w", err)
	}
	tensors, err := nn.LoadSafetensorsWithShapes(data)
	if err != nil {
		return TestSet{}, fmt.Errorf("predict: parse test set %s: %w", path, err)
	}
	pix, ok := tensors[keyPixelated]
	if !ok {
		return TestSet{}, fmt.Errorf("predict: test set %s has no %s", path, keyPixelated)
	}
	known, ok := tensors[keyKnown]
	if !ok {
		return TestSet{}, fmt.Errorf("predict: test set %s has no %s", path, keyKnown)
	}

	n, h, w, err := imageStackShape(pix.Shape)
	if err != nil {
		return TestSet{}, fmt.Errorf("predict: %s: %w", keyPixelated, err)
	}
	kn, kh, kw, err := imageStackShape(known.Shape)
	if err != nil {
		return TestSet{}, fmt.Errorf("predict: %s: %w", keyKnown, err)
	}
	if kn != n || kh != h || kw != w {
		return TestSet{}, fmt.Errorf("predict: %s shape %v does not match %s shape %v", keyKnown, known.Shape, keyPixelated, pix.Shape)
	}
	if len(pix.Values) != n*h*w || len(known.Values) != n*h*w {
		return TestSet{}, fmt.Errorf("predict: test set %s has truncated tensors", path)
	}

	ts := TestSet{Height: h, Width: w}
	plane := h * w
	for i := 0; i < n; i++ {
		ts.Pixelated = append(ts.Pixelated, pix.Values[i*plane:(i+1)*plane])
		ts.Known = append(ts.Known, known.Values[i*plane:(i+1)*plane])
	}
	return ts, nil
}

// WriteTestSet stores ts in the layout LoadTestSet reads, as [N,1,H,W] U8.
func WriteTestSet(path string, ts TestSet) error {
	if len(ts.Known) != len(ts.Pixelated) {
		return fmt.Errorf("predict: %d images but %d masks", len(ts.Pixelated), len(ts.Known))
	}
	plane := ts.Height * ts.Width
	pix := make([]float32, 0, len(ts.Pixelated)*plane)
	known := make([]float32, 0, len(ts.Known)*plane)
	for i := range ts.Pixelated {
		if len(ts.Pixelated[i]) != plane || len(ts.Known[i]) != plane {
			return fmt.Errorf("predict: sample %d is not %dx%d", i, ts.Height, ts.Width)
		}
		pix = append(pix, ts.Pixelated[i]...)
		known = append(known, ts.Known[i]...)
	}
	shape := []int{len(ts.Pixelated), 1, ts.Height, ts.Width}
	return nn.SaveSafetensors(path, map[string]nn.TensorWithShape{
		keyPixelated: {Values: pix, Shape: shape, DType: "U8"},
		keyKnown:     {Values: known, Shape: shape, DType: "U8"},
	})
}

func imageStackShape(shape []int) (n, h, w int, err error) {
	switch {
	case len(shape) == 4 && shape[1] == 1:
		return shape[0], shape[2], shape[3], nil
	case len(shape) == 3:
		return shape[0], shape[1], shape[2], nil
	default:
		return 0, 0, 0, fmt.Errorf("shape %v, want [N,1,H,W] or [N,H,W]", shape)
	}
}
