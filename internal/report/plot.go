package report

import (
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"depixel/internal/metrics"
)

// SaveLossPlot draws the train and eval traces against the epoch number. The
// image format follows the file extension. Non-finite losses are left out.
func SaveLossPlot(path string, trace metrics.LossTrace) error {
	p := plot.New()
	p.Title.Text = "Loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	var lines []interface{}
	if pts := finitePoints(trace.Train); len(pts) > 0 {
		lines = append(lines, "train", pts)
	}
	if pts := finitePoints(trace.Eval); len(pts) > 0 {
		lines = append(lines, "eval", pts)
	}
	if len(lines) > 0 {
		if err := plotutil.AddLines(p, lines...); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func finitePoints(losses []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(losses))
	for i, v := range losses {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: v})
	}
	return pts
}
