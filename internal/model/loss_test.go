package model

import (
	"math"
	"testing"

	"gorgonia.org/tensor"
)

func TestMSELossValueAndGradient(t *testing.T) {
	pred := tensor.New(tensor.WithShape(1, 1, 1, 4), tensor.WithBacking([]float32{1, 0, 0.5, 0}))
	target := tensor.New(tensor.WithShape(1, 1, 1, 4), tensor.WithBacking([]float32{0, 0, 0.5, 1}))
	loss, grad, err := MSELoss{}.Compute(pred, target)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-0.5) > 1e-9 {
		t.Fatalf("loss=%v want 0.5", loss)
	}
	want := []float32{0.5, 0, 0, -0.5}
	got := grad.Data().([]float32)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-7 {
			t.Fatalf("grad=%v want %v", got, want)
		}
	}
}

func TestMSELossShapeMismatch(t *testing.T) {
	pred := tensor.New(tensor.WithShape(1, 1, 2, 2), tensor.WithBacking(make([]float32, 4)))
	target := tensor.New(tensor.WithShape(1, 1, 1, 4), tensor.WithBacking(make([]float32, 4)))
	if _, _, err := (MSELoss{}).Compute(pred, target); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}
