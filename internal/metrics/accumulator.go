package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Accumulator collects the per-batch losses of one phase of one epoch.
type Accumulator struct {
	losses []float64
}

// Add records one batch loss. Non-finite values are kept as-is.
func (a *Accumulator) Add(loss float64) {
	a.losses = append(a.losses, loss)
}

// Len is the number of recorded batches.
func (a *Accumulator) Len() int { return len(a.losses) }

// Mean is the arithmetic mean of the recorded losses, NaN when empty.
func (a *Accumulator) Mean() float64 {
	if len(a.losses) == 0 {
		return math.NaN()
	}
	return stat.Mean(a.losses, nil)
}

// Losses returns a copy of the recorded losses.
func (a *Accumulator) Losses() []float64 {
	return append([]float64(nil), a.losses...)
}
