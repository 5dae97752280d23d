package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Subset is a view of a parent Dataset restricted to a list of indices.
type Subset struct {
	parent  Dataset
	indices []int
}

// NewSubset returns the view of parent at indices. The slice is not copied.
func NewSubset(parent Dataset, indices []int) *Subset {
	return &Subset{parent: parent, indices: indices}
}

func (s *Subset) Len() int { return len(s.indices) }

func (s *Subset) Sample(i int) (Sample, error) {
	if i < 0 || i >= len(s.indices) {
		return Sample{}, fmt.Errorf("subset: index %d out of range [0,%d)", i, len(s.indices))
	}
	return s.parent.Sample(s.indices[i])
}

// Indices returns a copy of the parent indices backing s.
func (s *Subset) Indices() []int {
	return append([]int(nil), s.indices...)
}

// SplitLengths converts fractions of n into subset sizes. Each size is
// floor(n*f); the remainder is handed out one at a time from the first subset.
// Fractions summing slightly above one can floor to more than n; the surplus
// is taken back from the last non-empty subsets so the sizes always sum to n.
func SplitLengths(n int, fractions []float64) []int {
	lengths := make([]int, len(fractions))
	if len(fractions) == 0 {
		return lengths
	}
	sum := 0
	for i, f := range fractions {
		lengths[i] = int(math.Floor(float64(n) * f))
		sum += lengths[i]
	}
	for i := 0; sum < n; i++ {
		lengths[i%len(lengths)]++
		sum++
	}
	for i := len(lengths) - 1; sum > n && i >= 0; i-- {
		take := min(lengths[i], sum-n)
		lengths[i] -= take
		sum -= take
	}
	return lengths
}

// Split partitions ds into len(fractions) disjoint subsets using a random
// permutation drawn from rng. Fractions are assumed validated by the caller.
func Split(ds Dataset, fractions []float64, rng *rand.Rand) ([]*Subset, error) {
	if len(fractions) == 0 {
		return nil, fmt.Errorf("split: no fractions")
	}
	for _, f := range fractions {
		if f < 0 || math.IsNaN(f) {
			return nil, fmt.Errorf("split: negative fraction %v", f)
		}
	}
	n := ds.Len()
	lengths := SplitLengths(n, fractions)
	perm := rng.Perm(n)

	subsets := make([]*Subset, len(lengths))
	offset := 0
	for i, length := range lengths {
		subsets[i] = NewSubset(ds, perm[offset:offset+length])
		offset += length
	}
	return subsets, nil
}
