package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	TrainRoots []string `yaml:"train_roots"`
	NumWorkers int      `yaml:"num_workers"`
	PendingCap int      `yaml:"pending_cap"`

	Architecture   string `yaml:"architecture"`
	HiddenChannels int    `yaml:"hidden_channels"`
	HiddenLayers   int    `yaml:"hidden_layers"`
	KernelSize     int    `yaml:"kernel_size"`
	ImageSize      int    `yaml:"image_size"`

	Epochs        int       `yaml:"epochs"`
	Splits        []float64 `yaml:"splits"`
	BatchSize     int       `yaml:"batch_size"`
	PaddedCollate bool      `yaml:"padded_collate"`
	Optimizer     string    `yaml:"optimizer"`
	LearningRate  float64   `yaml:"learning_rate"`
	Momentum      float64   `yaml:"momentum"`
	WeightDecay   float64   `yaml:"weight_decay"`

	Device     string `yaml:"device"`
	GPUAdapter string `yaml:"gpu_adapter"`
	// Seed is kept as text so a malformed value reaches the trainer's
	// validation instead of failing YAML decoding.
	Seed string `yaml:"seed"`

	EarlyStopping bool `yaml:"early_stopping"`
	Patience      int  `yaml:"patience"`

	CheckpointPath string `yaml:"checkpoint_path"`
	PlotPath       string `yaml:"plot_path"`
	ShowProgress   bool   `yaml:"show_progress"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	TrainRoots     []string
	Epochs         int
	BatchSize      int
	NumWorkers     int
	Seed           string
	Device         string
	CheckpointPath string
	PlotPath       string
	ShowProgress   bool
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		NumWorkers:     2,
		Architecture:   "depix",
		HiddenChannels: 32,
		HiddenLayers:   2,
		KernelSize:     3,
		ImageSize:      64,
		Epochs:         10,
		Splits:         []float64{0.8, 0.2},
		BatchSize:      16,
		Optimizer:      "adam",
		LearningRate:   1e-3,
		Device:         "cpu",
		EarlyStopping:  true,
		Patience:       3,
	}
}

// Load reads and validates a Config from YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if len(o.TrainRoots) > 0 {
		c.TrainRoots = append([]string(nil), o.TrainRoots...)
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.Seed != "" {
		c.Seed = o.Seed
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.CheckpointPath != "" {
		c.CheckpointPath = o.CheckpointPath
	}
	if o.PlotPath != "" {
		c.PlotPath = o.PlotPath
	}
	if o.ShowProgress {
		c.ShowProgress = true
	}
}

// Validate verifies the config is runnable. Seed, split fractions and
// patience are checked again by the trainer with typed errors.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.TrainRoots) == 0 {
		return errors.New("at least one training root must be set")
	}
	for i, root := range c.TrainRoots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("train_roots[%d] is empty", i)
		}
	}
	if c.NumWorkers <= 0 {
		return fmt.Errorf("num_workers must be > 0 (got %d)", c.NumWorkers)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if len(c.Splits) != 2 {
		return fmt.Errorf("splits must hold exactly two fractions (got %d)", len(c.Splits))
	}
	if c.HiddenChannels <= 0 {
		return fmt.Errorf("hidden_channels must be > 0 (got %d)", c.HiddenChannels)
	}
	if c.KernelSize <= 0 || c.KernelSize%2 == 0 {
		return fmt.Errorf("kernel_size must be odd and > 0 (got %d)", c.KernelSize)
	}
	if c.PaddedCollate && isDepix(c.Architecture) {
		return fmt.Errorf("padded_collate needs a size-agnostic architecture; %q is fixed at image_size %d", c.Architecture, c.ImageSize)
	}
	switch strings.ToLower(c.Optimizer) {
	case "adam", "sgd":
	default:
		return fmt.Errorf("optimizer must be adam or sgd (got %q)", c.Optimizer)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %v)", c.LearningRate)
	}
	return nil
}

// isDepix mirrors the architecture names model.ParseArch maps to the fixed
// size network, including the empty default.
func isDepix(arch string) bool {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "", "depix", "depixcnn":
		return true
	}
	return false
}
