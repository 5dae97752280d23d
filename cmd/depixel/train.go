package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"depixel/internal/config"
	"depixel/internal/dataset"
	"depixel/internal/device"
	"depixel/internal/model"
	"depixel/internal/trainer"
)

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "configs/depixel.yaml", "Path to YAML config")
	roots := fs.String("train-roots", "", "Comma separated training roots, overriding the config")
	epochs := fs.Int("epochs", 0, "Number of epochs")
	batchSize := fs.Int("batch-size", 0, "Minibatch size")
	numWorkers := fs.Int("num-workers", 0, "Number of shard loader workers")
	seed := fs.String("seed", "", "Integer PRNG seed")
	dev := fs.String("device", "", "Device strategy: cpu or accelerator")
	checkpoint := fs.String("checkpoint", "", "Checkpoint output path")
	plotPath := fs.String("plot", "", "Loss plot output path")
	progress := fs.Bool("progress", false, "Draw a per-epoch progress bar")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var rootList []string
	for _, r := range strings.Split(*roots, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rootList = append(rootList, r)
		}
	}
	cfg.ApplyOverrides(config.Overrides{
		TrainRoots:     rootList,
		Epochs:         *epochs,
		BatchSize:      *batchSize,
		NumWorkers:     *numWorkers,
		Seed:           *seed,
		Device:         *dev,
		CheckpointPath: *checkpoint,
		PlotPath:       *plotPath,
		ShowProgress:   *progress,
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	runCfg, err := runConfigFrom(cfg)
	if err != nil {
		return err
	}
	if err := runCfg.Validate(); err != nil {
		return err
	}
	opts, err := modelOptionsFrom(cfg)
	if err != nil {
		return err
	}
	newOptimizer := optimizerFrom(cfg)

	shards, err := dataset.DiscoverShards(cfg.TrainRoots...)
	if err != nil {
		return fmt.Errorf("discover shards: %w", err)
	}
	log.Printf("roots=%d shards=%d", len(cfg.TrainRoots), len(shards))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := dataset.LoadShards(ctx, dataset.LoadOptions{
		Shards:     shards,
		NumWorkers: cfg.NumWorkers,
		PendingCap: cfg.PendingCap,
	})
	if err != nil {
		return fmt.Errorf("load shards: %w", err)
	}
	log.Printf("samples=%d", ds.Len())

	m, err := model.New(opts)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	res, err := trainer.Run(ctx, m, ds, newOptimizer, model.MSELoss{}, runCfg)
	if err != nil {
		return err
	}
	log.Printf("run=%s epochs=%d best_epoch=%d stopped_early=%t device=%s",
		res.RunID, res.Epochs, res.BestEpoch, res.StoppedEarly, res.Device)
	return nil
}

func runConfigFrom(cfg *config.Config) (trainer.RunConfig, error) {
	strategy, err := device.ParseStrategy(cfg.Device)
	if err != nil {
		return trainer.RunConfig{}, err
	}
	var splits [2]float64
	copy(splits[:], cfg.Splits)

	collate := dataset.Stack
	if cfg.PaddedCollate {
		collate = dataset.StackWithPadding
	}

	return trainer.RunConfig{
		Epochs:         cfg.Epochs,
		Splits:         splits,
		MinibatchSize:  cfg.BatchSize,
		Collate:        collate,
		Device:         strategy,
		Adapter:        cfg.GPUAdapter,
		Seed:           trainer.ParseSeed(cfg.Seed),
		EarlyStopping:  cfg.EarlyStopping,
		Patience:       cfg.Patience,
		CheckpointPath: cfg.CheckpointPath,
		PlotPath:       cfg.PlotPath,
		ShowProgress:   cfg.ShowProgress,
		Progress:       os.Stderr,
		Logger:         log.Default(),
	}, nil
}

func modelOptionsFrom(cfg *config.Config) (model.Options, error) {
	arch, err := model.ParseArch(cfg.Architecture)
	if err != nil {
		return model.Options{}, err
	}
	// Weight init reuses the run seed; an unseeded run initializes from 0.
	seed, _, err := trainer.ParseSeed(cfg.Seed).Value()
	if err != nil {
		return model.Options{}, err
	}
	return model.Options{
		Arch:         arch,
		InChannels:   2,
		Hidden:       cfg.HiddenChannels,
		HiddenLayers: cfg.HiddenLayers,
		KernelSize:   cfg.KernelSize,
		ImageSize:    cfg.ImageSize,
		Seed:         seed,
	}, nil
}

func optimizerFrom(cfg *config.Config) model.OptimizerFactory {
	if strings.EqualFold(cfg.Optimizer, "sgd") {
		return model.SGD(cfg.LearningRate, cfg.Momentum)
	}
	return model.Adam(model.AdamConfig{LR: cfg.LearningRate, WeightDecay: cfg.WeightDecay})
}
