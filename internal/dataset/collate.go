package dataset

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"
)

// Batch is a collated group of samples. Inputs is [B,C,H,W] and Targets is
// [B,1,H,W].
type Batch struct {
	Keys    []string
	Inputs  *tensor.Dense
	Targets *tensor.Dense
}

// Size returns the number of samples in the batch.
func (b Batch) Size() int { return len(b.Keys) }

// CollateFunc combines samples into a Batch.
type CollateFunc func(samples []Sample) (Batch, error)

// Stack collates samples that all share one shape.
func Stack(samples []Sample) (Batch, error) {
	if len(samples) == 0 {
		return Batch{}, errors.New("collate: empty batch")
	}
	first := samples[0]
	for _, s := range samples[1:] {
		if s.Channels != first.Channels || s.Height != first.Height || s.Width != first.Width {
			return Batch{}, fmt.Errorf("collate: sample %q has shape [%d,%d,%d], want [%d,%d,%d]",
				s.Key, s.Channels, s.Height, s.Width, first.Channels, first.Height, first.Width)
		}
	}
	return stack(samples, first.Height, first.Width)
}

// StackWithPadding collates samples of varying height and width by
// zero-padding each one at the bottom and right to the largest extent in the
// batch. Channel counts must still agree.
func StackWithPadding(samples []Sample) (Batch, error) {
	if len(samples) == 0 {
		return Batch{}, errors.New("collate: empty batch")
	}
	height, width := 0, 0
	for _, s := range samples {
		if s.Channels != samples[0].Channels {
			return Batch{}, fmt.Errorf("collate: sample %q has %d channels, want %d", s.Key, s.Channels, samples[0].Channels)
		}
		height = max(height, s.Height)
		width = max(width, s.Width)
	}
	return stack(samples, height, width)
}

func stack(samples []Sample, height, width int) (Batch, error) {
	channels := samples[0].Channels
	plane := height * width
	inputs := make([]float32, len(samples)*channels*plane)
	targets := make([]float32, len(samples)*plane)
	keys := make([]string, len(samples))

	for b, s := range samples {
		if err := s.Validate(); err != nil {
			return Batch{}, fmt.Errorf("collate: %w", err)
		}
		keys[b] = s.Key
		for c := 0; c < channels; c++ {
			dst := inputs[(b*channels+c)*plane:]
			src := s.Input[c*s.Height*s.Width:]
			copyPlane(dst, src, s.Height, s.Width, width)
		}
		copyPlane(targets[b*plane:], s.Target, s.Height, s.Width, width)
	}

	return Batch{
		Keys:    keys,
		Inputs:  tensor.New(tensor.WithShape(len(samples), channels, height, width), tensor.WithBacking(inputs)),
		Targets: tensor.New(tensor.WithShape(len(samples), 1, height, width), tensor.WithBacking(targets)),
	}, nil
}

// copyPlane copies an h×w plane into a destination with row stride dstWidth.
func copyPlane(dst, src []float32, h, w, dstWidth int) {
	for y := 0; y < h; y++ {
		copy(dst[y*dstWidth:y*dstWidth+w], src[y*w:(y+1)*w])
	}
}
