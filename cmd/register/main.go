// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main registers trained runs in the model registry.
//
//	go run ./cmd/register --policy run --run_id <id>   # new version in stage None
//	go run ./cmd/register --policy run --stage Staging # register the latest run into Staging
//	go run ./cmd/register --policy best                # promote the lowest-rmse run
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	policy := flag.String("policy", pipeline.PolicyRun, "registration policy: run or best")
	runID := flag.String("run_id", "", "run to register with --policy run (default: latest run)")
	stage := flag.String("stage", "", "stage to move the registered version to: None, Staging, Production or Archived")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := pipeline.RegisterRequest{Policy: *policy, RunID: *runID, Stage: *stage}
	if err := run(ctx, cfg, req); err != nil {
		logging.Error().Err(err).Str("policy", *policy).Msg("Registration failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, req pipeline.RegisterRequest) error {
	store, err := tracking.Open(ctx, tracking.Options{URI: cfg.Tracking.TrackingURI})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing tracking store")
		}
	}()

	registrar := pipeline.NewRegistrar(store, store, cfg.Tracking.ModelRegistryName, cfg.Tracking.ExperimentName)
	mv, err := registrar.Execute(ctx, req)
	if err != nil {
		return err
	}

	logging.Info().
		Str("model", mv.Name).
		Int("version", mv.Version).
		Str("stage", mv.Stage).
		Str("run_id", mv.RunID).
		Str("uri", mv.URI()).
		Msg("Model version registered")
	return nil
}
