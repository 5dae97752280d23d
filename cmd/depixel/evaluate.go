package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"depixel/internal/dataset"
	"depixel/internal/model"
	"depixel/internal/report"
	"depixel/internal/trainer"
)

func runEvaluate(args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	archName := fs.String("arch", "depix", "Model architecture: depix or simple")
	modelPath := fs.String("model", "", "Checkpoint to restore")
	roots := fs.String("data", "", "Comma separated roots of the shards to score")
	batchSize := fs.Int("batch-size", 32, "Minibatch size")
	numWorkers := fs.Int("num-workers", 2, "Number of shard loader workers")
	padded := fs.Bool("padded", false, "Zero-pad samples of differing sizes within a batch")
	dumpDir := fs.String("dump-dir", "", "Directory for PNG panels of the first samples")
	dump := fs.Int("dump", 0, "Number of samples to dump as input/known/target/prediction panels")
	geometry := registerGeometry(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" || *roots == "" {
		return fmt.Errorf("-model and -data are required")
	}

	m, err := loadModel(*archName, *modelPath, geometry)
	if err != nil {
		return err
	}

	shards, err := dataset.DiscoverShards(strings.Split(*roots, ",")...)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ds, err := dataset.LoadShards(ctx, dataset.LoadOptions{Shards: shards, NumWorkers: *numWorkers})
	if err != nil {
		return fmt.Errorf("load shards: %w", err)
	}

	collate := dataset.Stack
	if *padded {
		collate = dataset.StackWithPadding
	}
	rep, err := trainer.Evaluate(m, ds, model.MSELoss{}, *batchSize, collate)
	if err != nil {
		return err
	}
	log.Printf("model=%s shards=%d samples=%d batches=%d eval_loss=%.6f",
		*modelPath, len(shards), rep.Samples, rep.Batches, rep.Loss)

	if *dump <= 0 || *dumpDir == "" {
		return nil
	}
	return dumpPanels(m, ds, *dumpDir, *dump)
}

// dumpPanels writes one input/known/target/prediction panel per sample for
// the first n samples of ds.
func dumpPanels(m model.Model, ds dataset.Dataset, dir string, n int) error {
	m.SetTraining(false)
	for i := 0; i < n && i < ds.Len(); i++ {
		s, err := ds.Sample(i)
		if err != nil {
			return err
		}
		batch, err := dataset.Stack([]dataset.Sample{s})
		if err != nil {
			return err
		}
		pred, err := m.Forward(batch.Inputs)
		if err != nil {
			return fmt.Errorf("sample %s: %w", s.Key, err)
		}
		plane := s.Height * s.Width
		path := filepath.Join(dir, fmt.Sprintf("sample_%04d.png", i))
		err = report.SavePanel(path, s.Height, s.Width,
			s.Input[:plane], s.Input[plane:2*plane], s.Target, pred.Data().([]float32))
		if err != nil {
			return err
		}
	}
	return nil
}
