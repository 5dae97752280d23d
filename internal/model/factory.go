package model

import (
	"fmt"
	"strings"
)

// Arch names a model architecture.
type Arch string

const (
	ArchSimple Arch = "simple"
	ArchDepix  Arch = "depix"
)

// ParseArch maps a config or flag value onto an Arch.
func ParseArch(v string) (Arch, error) {
	switch Arch(strings.ToLower(strings.TrimSpace(v))) {
	case ArchSimple, "simplecnn":
		return ArchSimple, nil
	case ArchDepix, "depixcnn", "":
		return ArchDepix, nil
	default:
		return "", fmt.Errorf("model: unknown architecture %q", v)
	}
}

// Options describe a model to build or restore.
type Options struct {
	Arch         Arch
	InChannels   int
	Hidden       int
	HiddenLayers int
	KernelSize   int
	ImageSize    int
	Seed         int64
}

func (o Options) depixConfig() DepixConfig {
	return DepixConfig{
		InChannels:   o.InChannels,
		Hidden:       o.Hidden,
		HiddenLayers: o.HiddenLayers,
		KernelSize:   o.KernelSize,
		ImageSize:    o.ImageSize,
	}
}

// New builds a freshly initialized model.
func New(opts Options) (Model, error) {
	switch opts.Arch {
	case ArchSimple:
		return NewSimpleCNN(opts.InChannels, opts.Hidden, opts.KernelSize, opts.Seed)
	case ArchDepix:
		return NewDepixCNN(opts.depixConfig(), opts.Seed)
	default:
		return nil, fmt.Errorf("model: unknown architecture %q", opts.Arch)
	}
}

// Load restores a checkpoint written by Model.Save. SimpleCNN checkpoints
// carry their own geometry; DepixCNN takes it from opts.
func Load(opts Options, path string) (Model, error) {
	switch opts.Arch {
	case ArchSimple:
		return LoadSimpleCNN(path)
	case ArchDepix:
		return LoadDepixCNN(opts.depixConfig(), path)
	default:
		return nil, fmt.Errorf("model: unknown architecture %q", opts.Arch)
	}
}
