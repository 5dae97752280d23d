package metrics

import (
	"math"
	"testing"
)

func TestAccumulatorMean(t *testing.T) {
	var acc Accumulator
	for _, loss := range []float64{0.5, 1.5, 4} {
		acc.Add(loss)
	}
	if want := (0.5 + 1.5 + 4) / 3; math.Abs(acc.Mean()-want) > 1e-12 {
		t.Fatalf("Mean=%v want %v", acc.Mean(), want)
	}
	if acc.Len() != 3 {
		t.Fatalf("Len=%d", acc.Len())
	}
}

func TestAccumulatorEmptyIsNaN(t *testing.T) {
	var acc Accumulator
	if !math.IsNaN(acc.Mean()) {
		t.Fatalf("expected NaN, got %v", acc.Mean())
	}
}

func TestAccumulatorKeepsNonFinite(t *testing.T) {
	var acc Accumulator
	acc.Add(1)
	acc.Add(math.Inf(1))
	if !math.IsInf(acc.Mean(), 1) {
		t.Fatalf("expected +Inf mean, got %v", acc.Mean())
	}
}
