package model

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"gorgonia.org/tensor"

	"depixel/internal/device"
)

func TestSimpleCNNTrainingReducesLoss(t *testing.T) {
	m, err := NewSimpleCNN(2, 4, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	x, y := randomPair(rand.New(rand.NewSource(2)), 2, 2, 5, 5)
	opt, err := Adam(AdamConfig{LR: 1e-2})(m)
	if err != nil {
		t.Fatal(err)
	}

	m.SetTraining(true)
	var first, last float64
	for step := 0; step < 60; step++ {
		m.ZeroGrad()
		pred, err := m.Forward(x)
		if err != nil {
			t.Fatal(err)
		}
		loss, grad, err := MSELoss{}.Compute(pred, y)
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Backward(grad); err != nil {
			t.Fatal(err)
		}
		if err := opt.Step(); err != nil {
			t.Fatal(err)
		}
		if step == 0 {
			first = loss
		}
		last = loss
	}
	if !(last < first) {
		t.Fatalf("expected loss to decrease; first=%f last=%f", first, last)
	}
}

func TestSimpleCNNGradientMatchesFiniteDifference(t *testing.T) {
	m, err := NewSimpleCNN(1, 2, 3, 7)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(3))
	x, _ := randomPair(rng, 1, 1, 4, 4)
	weights := make([]float32, 16)
	for i := range weights {
		weights[i] = float32(rng.Float64())
	}

	objective := func() float64 {
		out, err := m.Forward(x)
		if err != nil {
			t.Fatal(err)
		}
		var sum float64
		for i, v := range out.Data().([]float32) {
			sum += float64(v) * float64(weights[i])
		}
		return sum
	}

	m.SetTraining(true)
	m.ZeroGrad()
	objective()
	grad := tensor.New(tensor.WithShape(1, 1, 4, 4), tensor.WithBacking(append([]float32(nil), weights...)))
	if err := m.Backward(grad); err != nil {
		t.Fatal(err)
	}

	const eps = 1e-3
	for _, p := range m.Params() {
		for _, idx := range []int{0, len(p.Value) - 1} {
			orig := p.Value[idx]
			p.Value[idx] = orig + eps
			up := objective()
			p.Value[idx] = orig - eps
			down := objective()
			p.Value[idx] = orig
			numeric := (up - down) / (2 * eps)
			if diff := math.Abs(numeric - float64(p.Grad[idx])); diff > 2e-2*math.Max(1, math.Abs(numeric)) {
				t.Fatalf("%s[%d]: analytic %f numeric %f", p.Name, idx, p.Grad[idx], numeric)
			}
		}
	}
}

func TestSimpleCNNCheckpointRoundTrip(t *testing.T) {
	m, err := NewSimpleCNN(2, 3, 3, 11)
	if err != nil {
		t.Fatal(err)
	}
	x, _ := randomPair(rand.New(rand.NewSource(5)), 3, 2, 6, 4)
	before, err := m.Forward(x)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "simple.safetensors")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(Options{Arch: ArchSimple}, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	after, err := loaded.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	a, b := before.Data().([]float32), after.Data().([]float32)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("prediction %d differs after reload: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSimpleCNNRejectsAccelerator(t *testing.T) {
	m, err := NewSimpleCNN(2, 2, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	err = m.Place(device.Device{Kind: device.KindGPU, Name: "fake"})
	if !errors.Is(err, ErrAcceleratorUnsupported) {
		t.Fatalf("expected ErrAcceleratorUnsupported, got %v", err)
	}
	if m.Device().IsAccelerator() {
		t.Fatal("device changed after failed placement")
	}
}

func TestSimpleCNNBackwardNeedsTrainingForward(t *testing.T) {
	m, err := NewSimpleCNN(1, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	x, y := randomPair(rand.New(rand.NewSource(1)), 1, 1, 2, 2)
	m.SetTraining(false)
	if _, err := m.Forward(x); err != nil {
		t.Fatal(err)
	}
	if err := m.Backward(y); err == nil {
		t.Fatal("expected error for backward in inference mode")
	}
}

func TestNewSimpleCNNValidates(t *testing.T) {
	if _, err := NewSimpleCNN(2, 4, 2, 1); err == nil {
		t.Fatal("expected error for even kernel")
	}
	if _, err := NewSimpleCNN(0, 4, 3, 1); err == nil {
		t.Fatal("expected error for zero channels")
	}
}

// randomPair returns an input [b,c,h,w] and a target [b,1,h,w] in [0,1).
func randomPair(rng *rand.Rand, b, c, h, w int) (*tensor.Dense, *tensor.Dense) {
	in := make([]float32, b*c*h*w)
	for i := range in {
		in[i] = float32(rng.Float64())
	}
	target := make([]float32, b*h*w)
	for i := range target {
		target[i] = float32(rng.Float64())
	}
	return tensor.New(tensor.WithShape(b, c, h, w), tensor.WithBacking(in)),
		tensor.New(tensor.WithShape(b, 1, h, w), tensor.WithBacking(target))
}
