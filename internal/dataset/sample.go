package dataset

import "fmt"

// Sample is one (input, target) training pair in channel-major layout.
// Input has Channels planes of Height*Width values; Target has a single plane.
type Sample struct {
	Key      string
	Input    []float32
	Target   []float32
	Channels int
	Height   int
	Width    int
}

// Validate checks that the buffers agree with the declared shape.
func (s Sample) Validate() error {
	if s.Channels <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("sample %q: invalid shape [%d,%d,%d]", s.Key, s.Channels, s.Height, s.Width)
	}
	plane := s.Height * s.Width
	if len(s.Input) != s.Channels*plane {
		return fmt.Errorf("sample %q: input has %d values, want %d", s.Key, len(s.Input), s.Channels*plane)
	}
	if len(s.Target) != plane {
		return fmt.Errorf("sample %q: target has %d values, want %d", s.Key, len(s.Target), plane)
	}
	return nil
}

// Dataset exposes indexed access to samples.
type Dataset interface {
	Len() int
	Sample(i int) (Sample, error)
}

// InMemory is a Dataset backed by a slice.
type InMemory struct {
	samples []Sample
}

// NewInMemory wraps samples without copying.
func NewInMemory(samples []Sample) *InMemory {
	return &InMemory{samples: samples}
}

func (m *InMemory) Len() int { return len(m.samples) }

func (m *InMemory) Sample(i int) (Sample, error) {
	if i < 0 || i >= len(m.samples) {
		return Sample{}, fmt.Errorf("dataset: index %d out of range [0,%d)", i, len(m.samples))
	}
	return m.samples[i], nil
}
