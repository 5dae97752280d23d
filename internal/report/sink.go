// Package report persists the outcome of a training run: the model
// checkpoint, the loss curve, and human-viewable predictions.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"depixel/internal/metrics"
)

// Checkpointer is anything that can serialize itself to a path.
type Checkpointer interface {
	Save(path string) error
}

// Sink holds the optional output paths of a run. An empty path disables the
// corresponding action.
type Sink struct {
	CheckpointPath string
	PlotPath       string
}

// Persist writes the checkpoint and then the loss plot, creating parent
// directories as needed. The first error is returned and later actions are
// skipped.
func (s Sink) Persist(m Checkpointer, trace metrics.LossTrace) error {
	if s.CheckpointPath != "" {
		if err := os.MkdirAll(filepath.Dir(s.CheckpointPath), 0o755); err != nil {
			return fmt.Errorf("report: checkpoint dir: %w", err)
		}
		if err := m.Save(s.CheckpointPath); err != nil {
			return fmt.Errorf("report: checkpoint: %w", err)
		}
	}
	if s.PlotPath != "" {
		if err := SaveLossPlot(s.PlotPath, trace); err != nil {
			return fmt.Errorf("report: plot: %w", err)
		}
	}
	return nil
}
