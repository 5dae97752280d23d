// Package model defines the trainable models of the depixel trainer and the
// optimizers and loss that drive them.
package model

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"

	"depixel/internal/device"
)

// ErrAcceleratorUnsupported is returned by Place when a model has no GPU path.
var ErrAcceleratorUnsupported = errors.New("model: accelerator placement not supported")

// Model is a differentiable image-to-image function. Inputs are [B,C,H,W],
// outputs [B,1,H,W]. Gradients accumulate across Backward calls until ZeroGrad.
type Model interface {
	Forward(x *tensor.Dense) (*tensor.Dense, error)
	Backward(grad *tensor.Dense) error
	ZeroGrad()
	SetTraining(training bool)
	Place(dev device.Device) error
	Device() device.Device
	Save(path string) error
}

// Param is a trainable buffer and its gradient. Both slices alias model state.
type Param struct {
	Name  string
	Value []float32
	Grad  []float32
}

// ParamModel is a Model whose parameters are updated by this package's
// optimizers.
type ParamModel interface {
	Model
	Params() []Param
}

// float32s returns the backing slice of a float32 tensor.
func float32s(t *tensor.Dense) ([]float32, error) {
	if t == nil {
		return nil, errors.New("model: nil tensor")
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("model: tensor dtype %v, want float32", t.Dtype())
	}
	return data, nil
}

// dims4 unpacks an NCHW shape.
func dims4(t *tensor.Dense) (b, c, h, w int, err error) {
	shape := t.Shape()
	if len(shape) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("model: tensor shape %v, want [B,C,H,W]", shape)
	}
	return shape[0], shape[1], shape[2], shape[3], nil
}
