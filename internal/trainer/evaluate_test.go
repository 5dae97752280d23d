package trainer

import (
	"errors"
	"testing"
)

func TestEvaluateAveragesBatchesInOrder(t *testing.T) {
	m := &fakeModel{training: true}
	ds := newCountingDataset(5)
	loss := &scriptedLoss{values: []float64{0.3, 0.6, 0.9}}

	rep, err := Evaluate(m, ds, loss, 2, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rep.Batches != 3 || rep.Samples != 5 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if diff := rep.Loss - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("loss=%v want 0.6", rep.Loss)
	}
	if m.training || m.backwards != 0 {
		t.Fatalf("evaluation trained the model: training=%t backwards=%d", m.training, m.backwards)
	}
	for i, v := range m.seenEval {
		if v != float32(i) {
			t.Fatalf("eval order %v is not dataset order", m.seenEval)
		}
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	var cfgErr *ConfigurationError
	if _, err := Evaluate(&fakeModel{}, newCountingDataset(2), &scriptedLoss{}, 0, nil); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if _, err := Evaluate(&fakeModel{}, newCountingDataset(0), &scriptedLoss{}, 1, nil); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestEvaluatePropagatesLossError(t *testing.T) {
	_, err := Evaluate(&fakeModel{}, newCountingDataset(2), &scriptedLoss{values: []float64{1}, failAt: 2}, 1, nil)
	if err == nil {
		t.Fatal("expected loss failure to propagate")
	}
}
