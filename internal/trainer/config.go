package trainer

import (
	"fmt"
	"io"
	"log"
	"math"

	"depixel/internal/dataset"
	"depixel/internal/device"
)

// splitTolerance bounds how far the split fractions may sum away from one.
const splitTolerance = 1e-6

// RunConfig is the validated, immutable description of one training run.
type RunConfig struct {
	Epochs        int
	Splits        [2]float64
	MinibatchSize int
	// Collate combines samples into batches; nil means dataset.Stack.
	Collate dataset.CollateFunc

	Device  device.Strategy
	Adapter string
	Seed    Seed

	EarlyStopping bool
	Patience      int

	CheckpointPath string
	PlotPath       string

	ShowProgress bool
	Progress     io.Writer
	Logger       *log.Logger
}

// Validate checks every field before any work starts.
func (c RunConfig) Validate() error {
	if _, _, err := c.Seed.Value(); err != nil {
		return err
	}
	if c.Epochs <= 0 {
		return &ConfigurationError{Field: "epochs", Reason: fmt.Sprintf("%d must be positive", c.Epochs)}
	}
	sum := 0.0
	for _, f := range c.Splits {
		if f < 0 || math.IsNaN(f) {
			return &ConfigurationError{Field: "splits", Reason: fmt.Sprintf("fraction %v is negative", f)}
		}
		sum += f
	}
	if math.Abs(sum-1) > splitTolerance {
		return &ConfigurationError{Field: "splits", Reason: fmt.Sprintf("fractions %v sum to %v, want 1", c.Splits, sum)}
	}
	if c.MinibatchSize <= 0 {
		return &ConfigurationError{Field: "minibatch_size", Reason: fmt.Sprintf("%d must be positive", c.MinibatchSize)}
	}
	if c.Patience < 0 {
		return &ConfigurationError{Field: "patience", Reason: fmt.Sprintf("%d must not be negative", c.Patience)}
	}
	return nil
}
