// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main fits a gradient boosted rating model on the training split
// and records it as a tracking run.
//
//	go run ./cmd/train --max_depth 6 --eta 0.3
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/objectstore"
	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/storage"
	"github.com/tomtom215/cinescore/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	maxDepth := flag.Int("max_depth", cfg.Model.BoostParams.MaxDepth, "maximum tree depth")
	eta := flag.Float64("eta", cfg.Model.BoostParams.Eta, "learning rate")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	cfg.Model.BoostParams.MaxDepth = *maxDepth
	cfg.Model.BoostParams.Eta = *eta

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Training failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := tracking.Open(ctx, tracking.Options{URI: cfg.Tracking.TrackingURI})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing tracking store")
		}
	}()

	objects, err := objectstore.Open(objectstore.Options{Path: cfg.Storage.Path, Bucket: cfg.Storage.Bucket})
	if err != nil {
		return err
	}
	defer func() {
		if err := objects.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing object store")
		}
	}()

	models, err := storage.NewStore(cfg.Model.OutputDir)
	if err != nil {
		return err
	}

	trainer := pipeline.NewTrainer(store, objects, cfg.Storage.Bucket, models)
	res, err := trainer.Train(ctx, pipeline.TrainOptions{
		TrainFile:    cfg.Data.Path(cfg.Data.TrainDataFile),
		ManifestFile: cfg.Data.Path(cfg.Data.FeatureNamesFile),
		Target:       cfg.Model.TargetColumn,
		Experiment:   cfg.Tracking.ExperimentName,
		Params:       pipeline.ParamsFromConfig(cfg.Model.BoostParams),
	})
	if err != nil {
		return err
	}

	logging.Info().
		Str("run_id", res.RunID).
		Str("run_name", res.RunName).
		Str("artifact_uri", res.ArtifactURI).
		Str("local_path", res.LocalPath).
		Int("rows", res.Rows).
		Msg("Model trained")
	return nil
}
