package trainer

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"depixel/internal/dataset"
	"depixel/internal/device"
	"depixel/internal/metrics"
	"depixel/internal/model"
	"depixel/internal/report"
)

// resolveDevice is swapped in tests.
var resolveDevice = device.Resolve

// Result is the outcome of a run.
type Result struct {
	RunID        string
	Trace        metrics.LossTrace
	Epochs       int
	BestEpoch    int
	StoppedEarly bool
	Device       device.Device
}

// Run trains m on ds and evaluates it after every epoch. The model is left on
// the host on every return path. A checkpoint and loss plot are written once,
// when the run completes, stops early, or is canceled at an epoch boundary.
// A failure inside an epoch aborts the run without writing anything.
func Run(ctx context.Context, m model.Model, ds dataset.Dataset, newOptimizer model.OptimizerFactory, loss model.Loss, cfg RunConfig) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{RunID: uuid.New().String(), BestEpoch: -1}
	logger := runLogger(cfg.Logger, res.RunID)

	seed, seeded, _ := cfg.Seed.Value()
	if !seeded {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	subsets, err := dataset.Split(ds, cfg.Splits[:], rng)
	if err != nil {
		return res, fmt.Errorf("trainer: split: %w", err)
	}
	trainSet, evalSet := subsets[0], subsets[1]
	trainLoader, err := dataset.NewLoader(trainSet, cfg.MinibatchSize, true, rng, cfg.Collate)
	if err != nil {
		return res, fmt.Errorf("trainer: %w", err)
	}
	evalLoader, err := dataset.NewLoader(evalSet, cfg.MinibatchSize, false, nil, cfg.Collate)
	if err != nil {
		return res, fmt.Errorf("trainer: %w", err)
	}

	host := device.Host()
	dev := resolveDevice(cfg.Device, cfg.Adapter, logger)
	defer func() {
		if err := m.Place(host); err != nil {
			logger.Printf("device=%s restore_failed=true reason=%q", host, err)
		}
	}()
	if err := m.Place(dev); err != nil {
		if !dev.IsAccelerator() {
			return res, fmt.Errorf("trainer: place model on %s: %w", dev, err)
		}
		logger.Printf("device=%s fallback=true reason=%q", host, err)
		dev = host
		if err := m.Place(dev); err != nil {
			return res, fmt.Errorf("trainer: place model on %s: %w", dev, err)
		}
	}
	res.Device = dev

	opt, err := newOptimizer(m)
	if err != nil {
		return res, fmt.Errorf("trainer: build optimizer: %w", err)
	}

	logger.Printf("run_start seed=%s device=%s train_samples=%d eval_samples=%d epochs=%d batch_size=%d",
		cfg.Seed, dev, trainSet.Len(), evalSet.Len(), cfg.Epochs, cfg.MinibatchSize)

	var bar *report.Progress
	if cfg.ShowProgress {
		w := cfg.Progress
		if w == nil {
			w = os.Stderr
		}
		bar = report.NewProgress(w, cfg.Epochs)
		defer bar.Done()
	}

	sink := report.Sink{CheckpointPath: cfg.CheckpointPath, PlotPath: cfg.PlotPath}
	finish := func(runErr error) (Result, error) {
		res.BestEpoch = res.Trace.BestEpoch()
		if err := m.Place(host); err != nil {
			return res, fmt.Errorf("trainer: move model to %s: %w", host, err)
		}
		if err := sink.Persist(m, res.Trace); err != nil {
			return res, fmt.Errorf("trainer: %w", err)
		}
		return res, runErr
	}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			logger.Printf("epoch=%d canceled=true reason=%q", epoch, err)
			return finish(err)
		}

		trainAcc, snap, err := trainEpoch(m, opt, loss, trainLoader)
		if err != nil {
			return res, fmt.Errorf("trainer: epoch %d train: %w", epoch, err)
		}
		evalAcc, err := evalEpoch(m, loss, evalLoader)
		if err != nil {
			return res, fmt.Errorf("trainer: epoch %d eval: %w", epoch, err)
		}

		trainLoss, evalLoss := trainAcc.Mean(), evalAcc.Mean()
		res.Trace = res.Trace.Append(trainLoss, evalLoss)
		res.Epochs = epoch

		logger.Printf("epoch=%d train_loss=%.6f eval_loss=%.6f samples_per_sec=%.1f data_ms=%.2f compute_ms=%.2f",
			epoch, trainLoss, evalLoss, snap.SamplesPerSec, snap.AvgDataMS, snap.AvgComputeMS)
		if !finite(trainLoss) || (evalAcc.Len() > 0 && !finite(evalLoss)) {
			logger.Printf("epoch=%d warning=non_finite_loss train_loss=%v eval_loss=%v", epoch, trainLoss, evalLoss)
		}
		if bar != nil {
			bar.Update(epoch, trainLoss, evalLoss)
		}

		if cfg.EarlyStopping && shouldStop(res.Trace, cfg.Patience) {
			res.StoppedEarly = true
			logger.Printf("epoch=%d early_stop=true best_epoch=%d patience=%d", epoch, res.Trace.BestEpoch()+1, cfg.Patience)
			break
		}
	}
	return finish(nil)
}

func trainEpoch(m model.Model, opt model.Optimizer, loss model.Loss, loader *dataset.Loader) (metrics.Accumulator, metrics.Snapshot, error) {
	var acc metrics.Accumulator
	var window metrics.Window
	m.SetTraining(true)
	it := loader.Iter()
	for {
		startData := time.Now()
		batch, ok, err := it.Next()
		if err != nil {
			return acc, metrics.Snapshot{}, err
		}
		if !ok {
			break
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		m.ZeroGrad()
		pred, err := m.Forward(batch.Inputs)
		if err != nil {
			return acc, metrics.Snapshot{}, err
		}
		value, grad, err := loss.Compute(pred, batch.Targets)
		if err != nil {
			return acc, metrics.Snapshot{}, err
		}
		if err := m.Backward(grad); err != nil {
			return acc, metrics.Snapshot{}, err
		}
		if err := opt.Step(); err != nil {
			return acc, metrics.Snapshot{}, err
		}
		window.Record(batch.Size(), dataTime, time.Since(startCompute))
		acc.Add(value)
	}
	return acc, window.Snapshot(), nil
}

func evalEpoch(m model.Model, loss model.Loss, loader *dataset.Loader) (metrics.Accumulator, error) {
	var acc metrics.Accumulator
	m.SetTraining(false)
	it := loader.Iter()
	for {
		batch, ok, err := it.Next()
		if err != nil {
			return acc, err
		}
		if !ok {
			return acc, nil
		}
		pred, err := m.Forward(batch.Inputs)
		if err != nil {
			return acc, err
		}
		value, _, err := loss.Compute(pred, batch.Targets)
		if err != nil {
			return acc, err
		}
		acc.Add(value)
	}
}

func runLogger(base *log.Logger, runID string) *log.Logger {
	if base == nil {
		base = log.Default()
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return log.New(base.Writer(), base.Prefix()+"run="+short+" ", base.Flags())
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
