package trainer

import (
	"errors"
	"os"

	"gorgonia.org/tensor"

	"depixel/internal/dataset"
	"depixel/internal/device"
	"depixel/internal/model"
)

// fakeModel echoes zeros and records what it saw.
type fakeModel struct {
	forwards  int
	backwards int
	places    []device.Device
	saves     []string
	saveDev   []device.Device
	training  bool
	dev       device.Device
	rejectGPU bool
	seenTrain []float32
	seenEval  []float32
	onForward func(n int)
}

func (f *fakeModel) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	f.forwards++
	if f.onForward != nil {
		f.onForward(f.forwards)
	}
	shape := x.Shape()
	data := x.Data().([]float32)
	per := len(data) / shape[0]
	for b := 0; b < shape[0]; b++ {
		if f.training {
			f.seenTrain = append(f.seenTrain, data[b*per])
		} else {
			f.seenEval = append(f.seenEval, data[b*per])
		}
	}
	out := make([]float32, shape[0]*shape[2]*shape[3])
	return tensor.New(tensor.WithShape(shape[0], 1, shape[2], shape[3]), tensor.WithBacking(out)), nil
}

func (f *fakeModel) Backward(*tensor.Dense) error { f.backwards++; return nil }
func (f *fakeModel) ZeroGrad()                    {}
func (f *fakeModel) SetTraining(training bool)    { f.training = training }
func (f *fakeModel) Device() device.Device        { return f.dev }

func (f *fakeModel) Place(dev device.Device) error {
	f.places = append(f.places, dev)
	if dev.IsAccelerator() && f.rejectGPU {
		return model.ErrAcceleratorUnsupported
	}
	f.dev = dev
	return nil
}

func (f *fakeModel) Save(path string) error {
	f.saves = append(f.saves, path)
	f.saveDev = append(f.saveDev, f.dev)
	return os.WriteFile(path, []byte("fake"), 0o644)
}

type fakeOptimizer struct{ steps int }

func (o *fakeOptimizer) Step() error { o.steps++; return nil }

func fakeFactory(opt *fakeOptimizer) model.OptimizerFactory {
	return func(model.Model) (model.Optimizer, error) { return opt, nil }
}

// scriptedLoss returns its values in order, one per Compute call.
type scriptedLoss struct {
	values []float64
	calls  int
	failAt int
}

var errScriptExhausted = errors.New("loss script exhausted")

func (l *scriptedLoss) Compute(pred, target *tensor.Dense) (float64, *tensor.Dense, error) {
	l.calls++
	if l.failAt > 0 && l.calls == l.failAt {
		return 0, nil, errors.New("boom")
	}
	if l.calls > len(l.values) {
		return 0, nil, errScriptExhausted
	}
	grad := tensor.New(tensor.WithShape(pred.Shape().Clone()...), tensor.WithBacking(make([]float32, pred.Shape().TotalSize())))
	return l.values[l.calls-1], grad, nil
}

// epochScript lays out losses for consecutive epochs of nTrain train batches
// (each scoring trainLoss) followed by nEval eval batches scoring eval[e].
func epochScript(nTrain, nEval int, trainLoss float64, eval []float64) []float64 {
	var out []float64
	for _, e := range eval {
		for i := 0; i < nTrain; i++ {
			out = append(out, trainLoss)
		}
		for i := 0; i < nEval; i++ {
			out = append(out, e)
		}
	}
	return out
}

// countingDataset holds n 1×1×1 samples whose input value is the index.
type countingDataset struct {
	inner *dataset.InMemory
	calls int
}

func newCountingDataset(n int) *countingDataset {
	samples := make([]dataset.Sample, n)
	for i := range samples {
		samples[i] = dataset.Sample{
			Key:      string(rune('a' + i%26)),
			Input:    []float32{float32(i)},
			Target:   []float32{0},
			Channels: 1,
			Height:   1,
			Width:    1,
		}
	}
	return &countingDataset{inner: dataset.NewInMemory(samples)}
}

func (d *countingDataset) Len() int {
	d.calls++
	return d.inner.Len()
}

func (d *countingDataset) Sample(i int) (dataset.Sample, error) {
	d.calls++
	return d.inner.Sample(i)
}
