package dataset

import (
	"fmt"
	"math/rand"
)

// Loader yields batches of a Dataset, optionally reshuffled on every pass.
type Loader struct {
	ds        Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	collate   CollateFunc
}

// NewLoader returns a loader over ds. A nil collate means Stack. Shuffling
// draws from rng, which must be non-nil when shuffle is set.
func NewLoader(ds Dataset, batchSize int, shuffle bool, rng *rand.Rand, collate CollateFunc) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("loader: batch size %d must be positive", batchSize)
	}
	if shuffle && rng == nil {
		return nil, fmt.Errorf("loader: shuffle requires a random source")
	}
	if collate == nil {
		collate = Stack
	}
	return &Loader{ds: ds, batchSize: batchSize, shuffle: shuffle, rng: rng, collate: collate}, nil
}

// NumBatches is the number of batches one pass produces.
func (l *Loader) NumBatches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Iter starts a pass over the dataset.
func (l *Loader) Iter() *Iterator {
	n := l.ds.Len()
	var order []int
	if l.shuffle {
		order = l.rng.Perm(n)
	} else {
		order = make([]int, n)
		for i := range order {
			order[i] = i
		}
	}
	return &Iterator{loader: l, order: order}
}

// Iterator walks one pass of a Loader. It is not safe for concurrent use.
type Iterator struct {
	loader *Loader
	order  []int
	pos    int
}

// Order returns the sample order of this pass.
func (it *Iterator) Order() []int {
	return append([]int(nil), it.order...)
}

// Next returns the next batch. ok is false once the pass is exhausted.
func (it *Iterator) Next() (batch Batch, ok bool, err error) {
	if it.pos >= len(it.order) {
		return Batch{}, false, nil
	}
	end := min(it.pos+it.loader.batchSize, len(it.order))
	samples := make([]Sample, 0, end-it.pos)
	for _, idx := range it.order[it.pos:end] {
		s, err := it.loader.ds.Sample(idx)
		if err != nil {
			return Batch{}, false, err
		}
		samples = append(samples, s)
	}
	it.pos = end

	batch, err = it.loader.collate(samples)
	if err != nil {
		return Batch{}, false, err
	}
	return batch, true, nil
}
