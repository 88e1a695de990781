// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package pipeline

import (
	"context"
	"time"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/gbm"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/metrics"
	"github.com/tomtom215/cinescore/internal/tracking"
)

// EvalConfig locates the test split and its feature artifacts.
type EvalConfig struct {
	TestFile      string
	ManifestFile  string
	TransformFile string
	Target        string
	Experiment    string
}

// EvalResult is the outcome of one evaluation.
type EvalResult struct {
	RunID   string
	Rows    int
	Metrics gbm.Metrics
}

// Evaluator scores a run's model on the test split and logs the metrics
// onto the run.
type Evaluator struct {
	runs   Runs
	loader ModelLoader
	cfg    EvalConfig
}

// NewEvaluator creates an evaluator.
func NewEvaluator(runs Runs, loader ModelLoader, cfg EvalConfig) *Evaluator {
	return &Evaluator{runs: runs, loader: loader, cfg: cfg}
}

// ResolveRun returns the run with runID, or the experiment's latest run
// when runID is empty.
func ResolveRun(ctx context.Context, runs Runs, experiment, runID string) (*tracking.Run, error) {
	if runID != "" {
		return runs.GetRun(ctx, runID)
	}
	exp, err := runs.GetExperiment(ctx, experiment)
	if err != nil {
		return nil, err
	}
	return runs.LatestRun(ctx, exp.ID)
}

// Evaluate computes mse, rmse, r2 and mae for the run's model.
func (e *Evaluator) Evaluate(ctx context.Context, runID string) (res *EvalResult, err error) {
	start := time.Now()
	rows := 0
	defer func() { metrics.RecordPipelineStage("evaluate", rows, time.Since(start), err) }()

	run, err := ResolveRun(ctx, e.runs, e.cfg.Experiment, runID)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWithRunID(ctx, run.ID)
	log := logging.Ctx(ctx)
	if run.ArtifactURI == "" {
		return nil, apperrors.Validation("run", "run "+run.ID+" has no model artifact")
	}

	model, err := e.loader.Load(ctx, run.ArtifactURI)
	if err != nil {
		return nil, err
	}
	test, err := features.ReadCSV(e.cfg.TestFile)
	if err != nil {
		return nil, err
	}
	names, err := features.ReadManifest(e.cfg.ManifestFile)
	if err != nil {
		return nil, err
	}
	transform, err := features.LoadTransform(e.cfg.TransformFile)
	if err != nil {
		return nil, err
	}
	if err := transform.VerifyManifest(names); err != nil {
		return nil, err
	}

	x, err := features.SelectFeatures(test, names)
	if err != nil {
		return nil, err
	}
	y, err := targetValues(test, e.cfg.Target)
	if err != nil {
		return nil, err
	}
	preds, err := model.PredictBatch(x)
	if err != nil {
		return nil, apperrors.Validation("features", err.Error())
	}

	m := gbm.Evaluate(y, preds)
	rows = len(y)
	if err := e.runs.LogMetrics(ctx, run.ID, m.Map()); err != nil {
		return nil, err
	}

	log.Info().
		Int("rows", rows).
		Float64("rmse", m.RMSE).
		Float64("r2", m.R2).
		Float64("mae", m.MAE).
		Msg("Evaluation logged")
	return &EvalResult{RunID: run.ID, Rows: rows, Metrics: m}, nil
}
