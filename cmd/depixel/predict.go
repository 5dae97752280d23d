package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"depixel/internal/model"
	"depixel/internal/predict"
	"depixel/internal/report"
)

func runPredict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	archName := fs.String("arch", "depix", "Model architecture: depix or simple")
	modelPath := fs.String("model", "", "Checkpoint to restore")
	testSetPath := fs.String("testset", "", "Test-set safetensors archive")
	outPath := fs.String("out", "predictions.safetensors", "Submission output path")
	dumpDir := fs.String("dump-dir", "", "Directory for PNG dumps of the first predictions")
	dump := fs.Int("dump", 0, "Number of predictions to dump as PNG")
	geometry := registerGeometry(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" || *testSetPath == "" {
		return fmt.Errorf("-model and -testset are required")
	}

	m, err := loadModel(*archName, *modelPath, geometry)
	if err != nil {
		return err
	}

	ts, err := predict.LoadTestSet(*testSetPath)
	if err != nil {
		return err
	}
	log.Printf("testset=%s samples=%d size=%dx%d", *testSetPath, ts.Len(), ts.Height, ts.Width)

	preds, err := predict.Run(m, ts)
	if err != nil {
		return err
	}
	if err := predict.WriteSubmission(*outPath, preds); err != nil {
		return err
	}
	log.Printf("predictions=%d out=%s", len(preds), *outPath)

	if *dump <= 0 || *dumpDir == "" {
		return nil
	}
	if err := os.MkdirAll(*dumpDir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	for i := 0; i < *dump && i < len(preds); i++ {
		path := filepath.Join(*dumpDir, fmt.Sprintf("prediction_%04d.png", i))
		if err := report.SavePrediction(path, preds[i]); err != nil {
			return err
		}
	}
	return nil
}

// geometry holds the flags describing a DepixCNN, whose checkpoint does not
// record its own layer sizes.
type geometry struct {
	imageSize, hidden, hiddenLayers, kernel *int
}

func registerGeometry(fs *flag.FlagSet) geometry {
	return geometry{
		imageSize:    fs.Int("image-size", 64, "Image side length the depix model was built for"),
		hidden:       fs.Int("hidden", 32, "Hidden channels of the depix model"),
		hiddenLayers: fs.Int("hidden-layers", 2, "Hidden layers of the depix model"),
		kernel:       fs.Int("kernel", 3, "Kernel size of the depix model"),
	}
}

func loadModel(archName, path string, g geometry) (model.Model, error) {
	arch, err := model.ParseArch(archName)
	if err != nil {
		return nil, err
	}
	m, err := model.Load(model.Options{
		Arch:         arch,
		InChannels:   2,
		Hidden:       *g.hidden,
		HiddenLayers: *g.hiddenLayers,
		KernelSize:   *g.kernel,
		ImageSize:    *g.imageSize,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return m, nil
}
