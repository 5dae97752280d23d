package model

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Loss scores a prediction against its target and returns the gradient of
// the score with respect to the prediction.
type Loss interface {
	Compute(pred, target *tensor.Dense) (float64, *tensor.Dense, error)
}

// MSELoss is the mean squared error over every element.
type MSELoss struct{}

func (MSELoss) Compute(pred, target *tensor.Dense) (float64, *tensor.Dense, error) {
	if !pred.Shape().Eq(target.Shape()) {
		return 0, nil, fmt.Errorf("mse: prediction shape %v does not match target %v", pred.Shape(), target.Shape())
	}
	p, err := float32s(pred)
	if err != nil {
		return 0, nil, err
	}
	t, err := float32s(target)
	if err != nil {
		return 0, nil, err
	}
	if len(p) == 0 {
		return 0, nil, fmt.Errorf("mse: empty tensors")
	}

	n := float64(len(p))
	grad := make([]float32, len(p))
	var sum float64
	for i := range p {
		d := float64(p[i]) - float64(t[i])
		sum += d * d
		grad[i] = float32(2 * d / n)
	}
	return sum / n, tensor.New(tensor.WithShape(pred.Shape().Clone()...), tensor.WithBacking(grad)), nil
}
