package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleYAML = `
# depixel run
train_roots:
  - /data/a
  - /data/b
num_workers: 4
architecture: simple
hidden_channels: 8
epochs: 20
splits: [0.7, 0.3]
batch_size: 32
optimizer: sgd
learning_rate: 0.05
momentum: 0.9
device: accelerator
seed: 42
early_stopping: true
patience: 5
checkpoint_path: out/model.safetensors
plot_path: out/loss.png
`

func TestLoadAppliesDefaultsAndValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.TrainRoots, []string{"/data/a", "/data/b"}) {
		t.Fatalf("train roots %v", cfg.TrainRoots)
	}
	if cfg.Architecture != "simple" || cfg.HiddenChannels != 8 || cfg.Epochs != 20 {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if cfg.Seed != "42" {
		t.Fatalf("seed %q want \"42\"", cfg.Seed)
	}
	if !reflect.DeepEqual(cfg.Splits, []float64{0.7, 0.3}) {
		t.Fatalf("splits %v", cfg.Splits)
	}
	// Left out of the file.
	if cfg.KernelSize != 3 || cfg.ImageSize != 64 {
		t.Fatalf("defaults not applied: kernel=%d image=%d", cfg.KernelSize, cfg.ImageSize)
	}
}

func TestParseKeepsMalformedSeedAsText(t *testing.T) {
	cfg, err := Parse(strings.NewReader("seed: 2.5\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Seed != "2.5" {
		t.Fatalf("seed %q", cfg.Seed)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse(strings.NewReader("stepz: 3\n")); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Epochs != Default().Epochs {
		t.Fatal("empty document did not yield defaults")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.TrainRoots = []string{"/data/a"}
	cfg.ApplyOverrides(Overrides{TrainRoots: []string{"/x"}, Epochs: 3, Seed: "9", Device: "gpu", ShowProgress: true})
	if cfg.Epochs != 3 || cfg.Seed != "9" || cfg.Device != "gpu" || !cfg.ShowProgress {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.TrainRoots[0] != "/x" {
		t.Fatalf("roots %v", cfg.TrainRoots)
	}
	cfg.ApplyOverrides(Overrides{})
	if cfg.Epochs != 3 {
		t.Fatal("zero override clobbered value")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no roots":      func(c *Config) { c.TrainRoots = nil },
		"empty root":    func(c *Config) { c.TrainRoots = []string{" "} },
		"workers":       func(c *Config) { c.NumWorkers = 0 },
		"batch":         func(c *Config) { c.BatchSize = 0 },
		"three splits":  func(c *Config) { c.Splits = []float64{0.5, 0.25, 0.25} },
		"even kernel":   func(c *Config) { c.KernelSize = 4 },
		"optimizer":     func(c *Config) { c.Optimizer = "lbfgs" },
		"learning rate": func(c *Config) { c.LearningRate = 0 },
		"padded depix":  func(c *Config) { c.PaddedCollate = true },
	}
	for name, mutate := range cases {
		cfg := Default()
		cfg.TrainRoots = []string{"/data"}
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	cfg := Default()
	cfg.TrainRoots = []string{"/data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with a root: %v", err)
	}
}

func TestDefaultEnablesEarlyStopping(t *testing.T) {
	if !Default().EarlyStopping {
		t.Fatal("early stopping should be on by default")
	}
}

func TestValidateAllowsPaddingForSimpleArch(t *testing.T) {
	cfg := Default()
	cfg.TrainRoots = []string{"/data"}
	cfg.Architecture = "simple"
	cfg.PaddedCollate = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
