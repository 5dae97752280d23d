package metrics

// LossTrace holds one train and one eval loss per completed epoch.
// It is a value: Append returns a new trace and leaves the receiver intact.
type LossTrace struct {
	Train []float64
	Eval  []float64
}

// Append adds one epoch.
func (t LossTrace) Append(train, eval float64) LossTrace {
	next := LossTrace{
		Train: make([]float64, len(t.Train), len(t.Train)+1),
		Eval:  make([]float64, len(t.Eval), len(t.Eval)+1),
	}
	copy(next.Train, t.Train)
	copy(next.Eval, t.Eval)
	next.Train = append(next.Train, train)
	next.Eval = append(next.Eval, eval)
	return next
}

// Len is the number of recorded epochs.
func (t LossTrace) Len() int { return len(t.Eval) }

// BestEpoch returns the index of the first minimum eval loss, or -1 for an
// empty trace. A NaN is never smaller than anything, so it only wins at index 0.
func (t LossTrace) BestEpoch() int {
	if len(t.Eval) == 0 {
		return -1
	}
	best := 0
	for i, v := range t.Eval {
		if v < t.Eval[best] {
			best = i
		}
	}
	return best
}

// SinceBest is the number of epochs recorded after the best one.
func (t LossTrace) SinceBest() int {
	if len(t.Eval) == 0 {
		return 0
	}
	return len(t.Eval) - 1 - t.BestEpoch()
}
