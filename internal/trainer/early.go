package trainer

import "depixel/internal/metrics"

// shouldStop reports whether exactly patience epochs have passed since the
// first minimum of the eval loss.
func shouldStop(trace metrics.LossTrace, patience int) bool {
	return trace.Len() > 0 && trace.SinceBest() == patience
}
