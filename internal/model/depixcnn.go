package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/openfluke/loom/nn"
	"gorgonia.org/tensor"

	"depixel/internal/device"
)

const depixModelID = "depixcnn"

// DepixConfig fixes the geometry of a DepixCNN.
type DepixConfig struct {
	InChannels   int
	Hidden       int
	HiddenLayers int
	KernelSize   int
	ImageSize    int
}

func (c DepixConfig) validate() error {
	switch {
	case c.InChannels <= 0 || c.Hidden <= 0:
		return fmt.Errorf("depixcnn: channels must be positive (in=%d hidden=%d)", c.InChannels, c.Hidden)
	case c.HiddenLayers < 1:
		return fmt.Errorf("depixcnn: need at least one hidden layer, got %d", c.HiddenLayers)
	case c.KernelSize <= 0 || c.KernelSize%2 == 0:
		return fmt.Errorf("depixcnn: kernel size %d must be odd and positive", c.KernelSize)
	case c.ImageSize <= 0:
		return fmt.Errorf("depixcnn: image size %d must be positive", c.ImageSize)
	}
	return nil
}

// DepixCNN is a stack of same-padded loom conv2d layers over square images of
// a fixed size: HiddenLayers scaled-ReLU convolutions and a sigmoid output
// convolution down to one channel.
type DepixCNN struct {
	cfg      DepixConfig
	net      *nn.Network
	dev      device.Device
	training bool
}

// NewDepixCNN builds the network and initializes its kernels from seed.
func NewDepixCNN(cfg DepixConfig, seed int64) (*DepixCNN, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	size, k := cfg.ImageSize, cfg.KernelSize
	net := nn.NewNetwork(cfg.InChannels*size*size, 1, 1, cfg.HiddenLayers+1)
	net.BatchSize = 1

	rng := rand.New(rand.NewSource(seed))
	inC := cfg.InChannels
	for i := 0; i <= cfg.HiddenLayers; i++ {
		outC, act := cfg.Hidden, nn.ActivationScaledReLU
		if i == cfg.HiddenLayers {
			outC, act = 1, nn.ActivationSigmoid
		}
		conv := nn.InitConv2DLayer(size, size, inC, k, 1, k/2, outC, act)
		limit := math.Sqrt(6.0 / float64(inC*k*k))
		for j := range conv.Kernel {
			conv.Kernel[j] = float32((rng.Float64()*2 - 1) * limit)
		}
		for j := range conv.Bias {
			conv.Bias[j] = 0
		}
		net.SetLayer(0, 0, i, conv)
		inC = outC
	}
	return &DepixCNN{cfg: cfg, net: net, dev: device.Host()}, nil
}

// LoadDepixCNN restores a network written by Save. cfg must describe the
// geometry it was trained with.
func LoadDepixCNN(cfg DepixConfig, path string) (*DepixCNN, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	net, err := nn.LoadModel(path, depixModelID)
	if err != nil {
		return nil, fmt.Errorf("depixcnn: load %s: %w", path, err)
	}
	return &DepixCNN{cfg: cfg, net: net, dev: device.Host()}, nil
}

// Network exposes the underlying loom network to the optimizers.
func (m *DepixCNN) Network() *nn.Network { return m.net }

// Config returns the geometry of the model.
func (m *DepixCNN) Config() DepixConfig { return m.cfg }

func (m *DepixCNN) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	batch, c, h, w, err := dims4(x)
	if err != nil {
		return nil, err
	}
	if c != m.cfg.InChannels || h != m.cfg.ImageSize || w != m.cfg.ImageSize {
		return nil, fmt.Errorf("depixcnn: input shape %v, want [B,%d,%d,%d]", x.Shape(), m.cfg.InChannels, m.cfg.ImageSize, m.cfg.ImageSize)
	}
	in, err := float32s(x)
	if err != nil {
		return nil, err
	}

	m.net.BatchSize = batch
	out, _ := m.net.Forward(in)
	if want := batch * h * w; len(out) != want {
		return nil, fmt.Errorf("depixcnn: network produced %d values, want %d", len(out), want)
	}
	data := make([]float32, len(out))
	copy(data, out)
	return tensor.New(tensor.WithShape(batch, 1, h, w), tensor.WithBacking(data)), nil
}

// Backward stores the kernel and bias gradients on the network. loom routes
// it to the device the weights are mounted on.
func (m *DepixCNN) Backward(grad *tensor.Dense) error {
	g, err := float32s(grad)
	if err != nil {
		return err
	}
	m.net.Backward(g)
	return nil
}

// ZeroGrad is a no-op: every loom backward pass overwrites the stored
// gradients instead of accumulating into them.
func (m *DepixCNN) ZeroGrad() {}

// useOptimizer installs the update rule applied by step. nil means plain SGD.
func (m *DepixCNN) useOptimizer(opt nn.Optimizer) { m.net.SetOptimizer(opt) }

// step applies the stored gradients. Mounted weights only support plain SGD on
// the device, so a stateful rule updates the host copy and remounts it.
func (m *DepixCNN) step(lr float32) error {
	opt := m.net.GetOptimizer()
	if opt == nil || !m.net.IsGPUMounted() {
		m.net.ApplyGradients(lr)
		return nil
	}
	opt.Step(m.net, lr)
	m.net.ReleaseGPUWeights()
	m.net.GPU = true
	if err := m.net.WeightsToGPU(); err != nil {
		m.net.GPU = false
		m.dev = device.Host()
		return fmt.Errorf("depixcnn: remount weights after update: %w", err)
	}
	return nil
}

// SetTraining records the mode. The conv stack has no mode-dependent layers.
func (m *DepixCNN) SetTraining(training bool) { m.training = training }

// Place mounts the weights on the accelerator, or syncs them back to the host.
func (m *DepixCNN) Place(dev device.Device) error {
	if dev.IsAccelerator() == m.dev.IsAccelerator() {
		m.dev = dev
		return nil
	}
	if dev.IsAccelerator() {
		m.net.GPU = true
		if err := m.net.WeightsToGPU(); err != nil {
			m.net.GPU = false
			return fmt.Errorf("depixcnn: mount weights on %s: %w", dev, err)
		}
		m.dev = dev
		return nil
	}
	if err := m.net.WeightsToCPU(); err != nil {
		return fmt.Errorf("depixcnn: sync weights to host: %w", err)
	}
	m.net.GPU = false
	m.net.ReleaseGPUWeights()
	m.dev = dev
	return nil
}

func (m *DepixCNN) Device() device.Device { return m.dev }

// Save writes the network as loom JSON.
func (m *DepixCNN) Save(path string) error {
	if err := m.net.SaveModel(path, depixModelID); err != nil {
		return fmt.Errorf("depixcnn: save %s: %w", path, err)
	}
	return nil
}
