// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main turns the crawled movie document into the processed
// datasets, the feature manifest and the fitted feature transform.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	input := flag.String("input", cfg.Data.RawDataFile, "crawled movie JSON document")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := features.NewPipeline(features.Options{
		Target:        cfg.Model.TargetColumn,
		ReferenceYear: cfg.Data.ReferenceYear,
		TestSize:      cfg.Data.TestSize,
		Seed:          cfg.Data.SplitSeed,
	})

	result, err := p.Run(ctx, *input)
	if err != nil {
		logging.Error().Err(err).Str("input", *input).Msg("Preprocessing failed")
		stop()
		os.Exit(1)
	}

	files := features.OutputFiles{
		Full:         cfg.Data.FullDataFile,
		Train:        cfg.Data.TrainDataFile,
		Test:         cfg.Data.TestDataFile,
		FeatureNames: cfg.Data.FeatureNamesFile,
		Transform:    cfg.Data.TransformFile,
	}
	if err := result.Save(cfg.Data.ProcessedDataDir, files); err != nil {
		logging.Error().Err(err).Str("dir", cfg.Data.ProcessedDataDir).Msg("Failed to save processed data")
		stop()
		os.Exit(1)
	}

	logging.Info().
		Str("dir", cfg.Data.ProcessedDataDir).
		Int("train_rows", result.Split.Train.Len()).
		Int("test_rows", result.Split.Test.Len()).
		Int("features", len(result.Split.Features)).
		Msg("Processed data saved")
}
