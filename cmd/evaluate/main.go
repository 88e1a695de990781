// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main scores a run's model on the test split and logs mse, rmse,
// r2 and mae onto the run. Without --run_id the latest run of the
// experiment is evaluated.
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
	"github.com/tomtom215/cinescore/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	runID := flag.String("run_id", "", "run to evaluate (default: latest run)")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *runID); err != nil {
		logging.Error().Err(err).Str("run_id", *runID).Msg("Evaluation failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, runID string) error {
	store, err := tracking.Open(ctx, tracking.Options{URI: cfg.Tracking.TrackingURI})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing tracking store")
		}
	}()

	objects, err := objectstore.Open(objectstore.Options{
		Path:     cfg.Storage.Path,
		Bucket:   cfg.Storage.Bucket,
		ReadOnly: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := objects.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing object store")
		}
	}()

	loader := &pipeline.ArtifactLoader{Objects: objects, Bucket: cfg.Storage.Bucket, Registry: store}
	evaluator := pipeline.NewEvaluator(store, loader, pipeline.EvalConfig{
		TestFile:      cfg.Data.Path(cfg.Data.TestDataFile),
		ManifestFile:  cfg.Data.Path(cfg.Data.FeatureNamesFile),
		TransformFile: cfg.Data.Path(cfg.Data.TransformFile),
		Target:        cfg.Model.TargetColumn,
		Experiment:    cfg.Tracking.ExperimentName,
	})

	res, err := evaluator.Evaluate(ctx, runID)
	if err != nil {
		return err
	}

	logging.Info().
		Str("run_id", res.RunID).
		Int("rows", res.Rows).
		Float64("mse", res.Metrics.MSE).
		Float64("rmse", res.Metrics.RMSE).
		Float64("r2", res.Metrics.R2).
		Float64("mae", res.Metrics.MAE).
		Msg("Evaluation complete")
	return nil
}
