package trainer

import (
	"errors"
	"fmt"

	"depixel/internal/dataset"
	"depixel/internal/model"
)

// EvalReport summarizes a standalone evaluation pass.
type EvalReport struct {
	Loss    float64
	Batches int
	Samples int
}

// Evaluate scores a trained model on ds in inference mode, in dataset order,
// without touching its weights. Loss is the mean of the per-batch losses, as
// in the eval phase of Run. The model is used on whatever device it sits on.
func Evaluate(m model.Model, ds dataset.Dataset, loss model.Loss, batchSize int, collate dataset.CollateFunc) (EvalReport, error) {
	if batchSize <= 0 {
		return EvalReport{}, &ConfigurationError{Field: "minibatch_size", Reason: fmt.Sprintf("%d must be positive", batchSize)}
	}
	if ds.Len() == 0 {
		return EvalReport{}, errors.New("trainer: evaluate: empty dataset")
	}
	loader, err := dataset.NewLoader(ds, batchSize, false, nil, collate)
	if err != nil {
		return EvalReport{}, fmt.Errorf("trainer: evaluate: %w", err)
	}
	acc, err := evalEpoch(m, loss, loader)
	if err != nil {
		return EvalReport{}, fmt.Errorf("trainer: evaluate: %w", err)
	}
	return EvalReport{Loss: acc.Mean(), Batches: acc.Len(), Samples: ds.Len()}, nil
}
