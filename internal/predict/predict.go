package predict

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"

	"depixel/internal/model"
)

// Rescale maps a normalized model output onto a byte: values are clamped to
// [0,1] and rounded, so 1.0 becomes 255 and 0.0 becomes 0.
func Rescale(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)) || v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// Run predicts every test sample in order. The model input stacks the
// pixelated image scaled to [0,1] and the known mask as two channels.
func Run(m model.Model, ts TestSet) ([][]uint8, error) {
	m.SetTraining(false)
	plane := ts.Height * ts.Width
	out := make([][]uint8, 0, ts.Len())
	for i := range ts.Pixelated {
		pix, known := ts.Pixelated[i], ts.Known[i]
		if len(pix) != plane || len(known) != plane {
			return nil, fmt.Errorf("predict: sample %d is not %dx%d", i, ts.Height, ts.Width)
		}
		input := make([]float32, 2*plane)
		for j := 0; j < plane; j++ {
			input[j] = pix[j] / 255
			if known[j] != 0 {
				input[plane+j] = 1
			}
		}
		x := tensor.New(tensor.WithShape(1, 2, ts.Height, ts.Width), tensor.WithBacking(input))
		pred, err := m.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("predict: sample %d: %w", i, err)
		}
		values, ok := pred.Data().([]float32)
		if !ok || len(values) != plane {
			return nil, fmt.Errorf("predict: sample %d: model returned shape %v", i, pred.Shape())
		}
		flat := make([]uint8, plane)
		for j, v := range values {
			flat[j] = Rescale(v)
		}
		out = append(out, flat)
	}
	return out, nil
}
