// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main copies a locally saved model into the object store under
// storage.prefix, so it can be loaded as badger://<bucket>/<prefix><file>.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/objectstore"
	"github.com/tomtom215/cinescore/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	modelFile := flag.String("model_file", "", "model file in model.output_dir to upload (required)")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if *modelFile == "" {
		logging.Error().Msg("--model_file is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *modelFile); err != nil {
		logging.Error().Err(err).Str("model_file", *modelFile).Msg("Upload failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, modelFile string) error {
	local := filepath.Join(cfg.Model.OutputDir, filepath.Base(modelFile))
	data, err := os.ReadFile(local) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	// Refuse to publish something the server could not load.
	_, meta, err := pipeline.DecodeModel(data)
	if err != nil {
		return fmt.Errorf("%s is not a model artifact: %w", local, err)
	}
	logging.Debug().Str("name", meta.Name).Str("run_id", meta.RunID).Msg("Model artifact verified")

	objects, err := objectstore.Open(objectstore.Options{Path: cfg.Storage.Path, Bucket: cfg.Storage.Bucket})
	if err != nil {
		return err
	}
	defer func() {
		if err := objects.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing object store")
		}
	}()

	key := path.Join(cfg.Storage.Prefix, filepath.Base(modelFile))
	if err := objects.Upload(ctx, key, data); err != nil {
		return err
	}
	info, err := objects.Stat(ctx, key)
	if err != nil {
		return err
	}

	stored, err := objects.List(ctx, cfg.Storage.Prefix)
	if err != nil {
		return err
	}
	logging.Info().
		Str("uri", info.URI()).
		Int64("size", info.Size).
		Str("sha256", info.SHA256).
		Int("objects_under_prefix", len(stored)).
		Msg("Model uploaded")
	return nil
}
