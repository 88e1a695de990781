// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main scores movies offline with a locally stored model.
//
// Without --input the processed test split is scored. With --input a raw
// crawled document is transformed with the saved feature transform first.
//
//	go run ./cmd/predict --model_filename gbm_md6_eta0_3_v1.gob.gz --input result/test_upcoming_unrated.json
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/storage"
)

const sampleSize = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	modelFile := flag.String("model_filename", cfg.Model.Filename, "model file in model.output_dir")
	input := flag.String("input", "", "raw movie JSON document to score (default: processed test split)")
	output := flag.String("output", "", "write all predictions to this JSON file")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *modelFile, *input, *output); err != nil {
		logging.Error().Err(err).Str("model", *modelFile).Msg("Prediction failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, modelFile, input, output string) error {
	models, err := storage.NewStore(cfg.Model.OutputDir)
	if err != nil {
		return err
	}

	preds, err := pipeline.NewPredictor(models).Predict(ctx, pipeline.PredictOptions{
		ModelFile:     modelFile,
		Input:         input,
		TestFile:      cfg.Data.Path(cfg.Data.TestDataFile),
		ManifestFile:  cfg.Data.Path(cfg.Data.FeatureNamesFile),
		TransformFile: cfg.Data.Path(cfg.Data.TransformFile),
	})
	if err != nil {
		return err
	}

	for _, p := range preds[:min(sampleSize, len(preds))] {
		logging.Info().Int64("movie_id", p.MovieID).Float64("predicted_rating", p.PredictedRating).Msg("Prediction")
	}

	if output == "" {
		return nil
	}
	return writePredictions(output, preds)
}

func writePredictions(path string, preds []pipeline.Prediction) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(preds, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // predictions are not secret
		return err
	}
	logging.Info().Str("path", path).Int("count", len(preds)).Msg("Predictions written")
	return nil
}
