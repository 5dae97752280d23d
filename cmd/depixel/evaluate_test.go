package main

import (
	"os"
	"path/filepath"
	"testing"

	"depixel/internal/dataset"
	"depixel/internal/model"
)

func TestDumpPanelsWritesOnePerSample(t *testing.T) {
	m, err := model.New(model.Options{Arch: model.ArchSimple, InChannels: 2, Hidden: 2, KernelSize: 3, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]dataset.Sample, 3)
	for i := range samples {
		samples[i] = dataset.Sample{
			Key:      "k",
			Input:    make([]float32, 2*4*4),
			Target:   make([]float32, 4*4),
			Channels: 2,
			Height:   4,
			Width:    4,
		}
	}
	dir := filepath.Join(t.TempDir(), "panels")
	if err := dumpPanels(m, dataset.NewInMemory(samples), dir, 2); err != nil {
		t.Fatalf("dumpPanels: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("wrote %d panels, want 2", len(entries))
	}
}
