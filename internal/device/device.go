package device

import (
	"fmt"
	"log"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/openfluke/loom/gpu"
)

// Kind identifies the class of compute device a run executes on.
type Kind int

const (
	KindCPU Kind = iota
	KindGPU
)

func (k Kind) String() string {
	switch k {
	case KindGPU:
		return "gpu"
	default:
		return "cpu"
	}
}

// Strategy selects how the device of a run is chosen. It is resolved exactly
// once per run by Resolve.
type Strategy int

const (
	// CPU always runs on the host.
	CPU Strategy = iota
	// PreferAccelerator uses the GPU when one can be acquired and falls back
	// to the host otherwise.
	PreferAccelerator
)

func (s Strategy) String() string {
	if s == PreferAccelerator {
		return "accelerator"
	}
	return "cpu"
}

// ParseStrategy maps a config or flag value onto a Strategy.
func ParseStrategy(v string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "cpu":
		return CPU, nil
	case "accelerator", "gpu", "cuda", "auto":
		return PreferAccelerator, nil
	default:
		return CPU, fmt.Errorf("device: unknown strategy %q", v)
	}
}

// Device is a resolved compute device.
type Device struct {
	Kind Kind
	Name string
}

// IsAccelerator reports whether d is a GPU.
func (d Device) IsAccelerator() bool { return d.Kind == KindGPU }

func (d Device) String() string {
	if d.Name == "" {
		return d.Kind.String()
	}
	return d.Kind.String() + "(" + d.Name + ")"
}

// Host returns the CPU device, described by its brand string and core count.
func Host() Device {
	name := strings.TrimSpace(cpuid.CPU.BrandName)
	if name == "" {
		name = "unknown"
	}
	return Device{
		Kind: KindCPU,
		Name: fmt.Sprintf("%s cores=%d avx2=%t", name, cpuid.CPU.PhysicalCores, cpuid.CPU.Supports(cpuid.AVX2)),
	}
}

// probe acquires the accelerator. Tests swap it out.
var probe = probeWebGPU

func probeWebGPU(adapter string) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gpu probe panicked: %v", r)
		}
	}()
	if adapter != "" {
		gpu.SetAdapterPreference(adapter)
	}
	if _, err := gpu.GetContext(); err != nil {
		return "", err
	}
	if adapter == "" {
		adapter = "webgpu"
	}
	return adapter, nil
}

// Resolve turns a strategy into a concrete device. An accelerator that cannot
// be acquired is logged and replaced by the host.
func Resolve(s Strategy, adapter string, logger *log.Logger) Device {
	if logger == nil {
		logger = log.Default()
	}
	if s != PreferAccelerator {
		return Host()
	}
	name, err := probe(adapter)
	if err != nil {
		host := Host()
		logger.Printf("device=%s fallback=true reason=%q", host, err)
		return host
	}
	return Device{Kind: KindGPU, Name: name}
}
