package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/openfluke/loom/nn"
	"gorgonia.org/tensor"

	"depixel/internal/device"
)

// Safetensors keys of a SimpleCNN checkpoint.
const (
	keyConv1Weight = "conv1.weight"
	keyConv1Bias   = "conv1.bias"
	keyConv2Weight = "conv2.weight"
	keyConv2Bias   = "conv2.bias"
)

// SimpleCNN is a two-layer convolutional net: inC -> hidden (ReLU) -> 1.
// Both convolutions keep the spatial size, so any H×W input is accepted.
type SimpleCNN struct {
	inC    int
	hidden int
	kernel int

	w1, b1, w2, b2     []float32
	gw1, gb1, gw2, gb2 []float32
	training           bool
	dev                device.Device
	cache              *forwardCache
}

type forwardCache struct {
	batch, h, w int
	input       []float32
	pre         []float32
	act         []float32
}

// NewSimpleCNN constructs the model with He-uniform initialization.
func NewSimpleCNN(inChannels, hidden, kernel int, seed int64) (*SimpleCNN, error) {
	if inChannels <= 0 || hidden <= 0 {
		return nil, fmt.Errorf("simplecnn: channels must be positive (in=%d hidden=%d)", inChannels, hidden)
	}
	if kernel <= 0 || kernel%2 == 0 {
		return nil, fmt.Errorf("simplecnn: kernel size %d must be odd and positive", kernel)
	}
	m := newSimpleCNN(inChannels, hidden, kernel)
	rng := rand.New(rand.NewSource(seed))
	heUniform(rng, m.w1, inChannels*kernel*kernel)
	heUniform(rng, m.w2, hidden*kernel*kernel)
	return m, nil
}

func newSimpleCNN(inC, hidden, kernel int) *SimpleCNN {
	kk := kernel * kernel
	return &SimpleCNN{
		inC:    inC,
		hidden: hidden,
		kernel: kernel,
		w1:     make([]float32, hidden*inC*kk),
		b1:     make([]float32, hidden),
		w2:     make([]float32, hidden*kk),
		b2:     make([]float32, 1),
		gw1:    make([]float32, hidden*inC*kk),
		gb1:    make([]float32, hidden),
		gw2:    make([]float32, hidden*kk),
		gb2:    make([]float32, 1),
		dev:    device.Host(),
	}
}

func heUniform(rng *rand.Rand, weights []float32, fanIn int) {
	limit := math.Sqrt(6.0 / float64(fanIn))
	for i := range weights {
		weights[i] = float32((rng.Float64()*2 - 1) * limit)
	}
}

// Forward runs the network. In training mode the activations are kept for
// the next Backward.
func (m *SimpleCNN) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	batch, c, h, w, err := dims4(x)
	if err != nil {
		return nil, err
	}
	if c != m.inC {
		return nil, fmt.Errorf("simplecnn: input has %d channels, want %d", c, m.inC)
	}
	in, err := float32s(x)
	if err != nil {
		return nil, err
	}

	pre := conv2dSame(in, batch, m.inC, h, w, m.w1, m.b1, m.hidden, m.kernel)
	act := make([]float32, len(pre))
	for i, v := range pre {
		if v > 0 {
			act[i] = v
		}
	}
	out := conv2dSame(act, batch, m.hidden, h, w, m.w2, m.b2, 1, m.kernel)

	if m.training {
		m.cache = &forwardCache{batch: batch, h: h, w: w, input: in, pre: pre, act: act}
	} else {
		m.cache = nil
	}
	return tensor.New(tensor.WithShape(batch, 1, h, w), tensor.WithBacking(out)), nil
}

// Backward accumulates parameter gradients for the last training Forward.
func (m *SimpleCNN) Backward(grad *tensor.Dense) error {
	if m.cache == nil {
		return errors.New("simplecnn: backward without a training forward pass")
	}
	g, err := float32s(grad)
	if err != nil {
		return err
	}
	cache := m.cache
	if want := cache.batch * cache.h * cache.w; len(g) != want {
		return fmt.Errorf("simplecnn: gradient has %d values, want %d", len(g), want)
	}

	gAct := conv2dSameBackward(cache.act, g, cache.batch, m.hidden, cache.h, cache.w, m.w2, 1, m.kernel, m.gw2, m.gb2)
	for i, v := range cache.pre {
		if v <= 0 {
			gAct[i] = 0
		}
	}
	conv2dSameBackward(cache.input, gAct, cache.batch, m.inC, cache.h, cache.w, m.w1, m.hidden, m.kernel, m.gw1, m.gb1)
	m.cache = nil
	return nil
}

func (m *SimpleCNN) ZeroGrad() {
	for _, p := range m.Params() {
		clear(p.Grad)
	}
}

func (m *SimpleCNN) SetTraining(training bool) {
	m.training = training
	if !training {
		m.cache = nil
	}
}

// Place accepts only the host.
func (m *SimpleCNN) Place(dev device.Device) error {
	if dev.IsAccelerator() {
		return ErrAcceleratorUnsupported
	}
	m.dev = dev
	return nil
}

func (m *SimpleCNN) Device() device.Device { return m.dev }

// Params lists the trainable buffers in a fixed order.
func (m *SimpleCNN) Params() []Param {
	return []Param{
		{Name: keyConv1Weight, Value: m.w1, Grad: m.gw1},
		{Name: keyConv1Bias, Value: m.b1, Grad: m.gb1},
		{Name: keyConv2Weight, Value: m.w2, Grad: m.gw2},
		{Name: keyConv2Bias, Value: m.b2, Grad: m.gb2},
	}
}

// Save writes the weights as a safetensors file.
func (m *SimpleCNN) Save(path string) error {
	k := m.kernel
	tensors := map[string]nn.TensorWithShape{
		keyConv1Weight: {Values: m.w1, Shape: []int{m.hidden, m.inC, k, k}, DType: "F32"},
		keyConv1Bias:   {Values: m.b1, Shape: []int{m.hidden}, DType: "F32"},
		keyConv2Weight: {Values: m.w2, Shape: []int{1, m.hidden, k, k}, DType: "F32"},
		keyConv2Bias:   {Values: m.b2, Shape: []int{1}, DType: "F32"},
	}
	if err := nn.SaveSafetensors(path, tensors); err != nil {
		return fmt.Errorf("simplecnn: save %s: %w", path, err)
	}
	return nil
}

// LoadSimpleCNN restores a model written by Save.
func LoadSimpleCNN(path string) (*SimpleCNN, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("simplecnn: load: %w", err)
	}
	tensors, err := nn.LoadSafetensorsWithShapes(data)
	if err != nil {
		return nil, fmt.Errorf("simplecnn: load %s: %w", path, err)
	}
	w1, ok := tensors[keyConv1Weight]
	if !ok || len(w1.Shape) != 4 || w1.Shape[2] != w1.Shape[3] {
		return nil, fmt.Errorf("simplecnn: load %s: missing or malformed %s", path, keyConv1Weight)
	}
	m := newSimpleCNN(w1.Shape[1], w1.Shape[0], w1.Shape[2])
	for _, p := range m.Params() {
		t, ok := tensors[p.Name]
		if !ok {
			return nil, fmt.Errorf("simplecnn: load %s: missing %s", path, p.Name)
		}
		if len(t.Values) != len(p.Value) {
			return nil, fmt.Errorf("simplecnn: load %s: %s has %d values, want %d", path, p.Name, len(t.Values), len(p.Value))
		}
		copy(p.Value, t.Values)
	}
	return m, nil
}
