// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package pipeline runs the model lifecycle stages after feature
// preprocessing: training, evaluation, registration and offline prediction.
//
// Each stage is driven by one batch command. Stages talk to the tracking
// store through the narrow Runs and Versions interfaces, to artifacts
// through objectstore.Store and ModelLoader.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/gbm"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/metrics"
	"github.com/tomtom215/cinescore/internal/objectstore"
	"github.com/tomtom215/cinescore/internal/storage"
	"github.com/tomtom215/cinescore/internal/tracking"
)

// Runs is the part of the tracking store the stages use.
type Runs interface {
	tracking.MetricsLogger
	GetOrCreateExperiment(ctx context.Context, name string) (*tracking.Experiment, error)
	GetExperiment(ctx context.Context, name string) (*tracking.Experiment, error)
	StartRun(ctx context.Context, experimentID, name string) (*tracking.Run, error)
	EndRun(ctx context.Context, runID, status string) error
	SetArtifactURI(ctx context.Context, runID, uri string) error
	LogParams(ctx context.Context, runID string, params map[string]string) error
	GetRun(ctx context.Context, runID string) (*tracking.Run, error)
	LatestRun(ctx context.Context, experimentID string) (*tracking.Run, error)
	BestRun(ctx context.Context, experimentID, metric string) (*tracking.Run, error)
}

var _ Runs = (*tracking.Store)(nil)

// Metric names logged by the stages.
const (
	MetricTrainRMSE         = "train_rmse"
	MetricFeatureImportance = "feature_importance_count"
)

// ParamsFromConfig converts the configured hyperparameters.
func ParamsFromConfig(c config.BoostParams) gbm.Params {
	return gbm.Params{
		MaxDepth:       c.MaxDepth,
		Eta:            c.Eta,
		NumRounds:      c.NEstimators,
		MinChildWeight: c.MinChildWeight,
		Lambda:         c.Lambda,
		Gamma:          c.Gamma,
		Subsample:      c.Subsample,
		Seed:           c.Seed,
	}
}

func formatEta(eta float64) string {
	return strconv.FormatFloat(eta, 'g', -1, 64)
}

// RunName returns the tracking run name for params,
// e.g. GBM_Train_MaxDepth_6_Eta_0.3.
func RunName(p gbm.Params) string {
	return fmt.Sprintf("GBM_Train_MaxDepth_%d_Eta_%s", p.MaxDepth, formatEta(p.Eta))
}

// ModelName returns the local model store name for params,
// e.g. gbm_md6_eta0_3.
func ModelName(p gbm.Params) string {
	return fmt.Sprintf("gbm_md%d_eta%s", p.MaxDepth, strings.ReplaceAll(formatEta(p.Eta), ".", "_"))
}

func paramMap(p gbm.Params) map[string]string {
	return map[string]string{
		"max_depth":        strconv.Itoa(p.MaxDepth),
		"eta":              formatEta(p.Eta),
		"n_estimators":     strconv.Itoa(p.NumRounds),
		"min_child_weight": formatEta(p.MinChildWeight),
		"lambda":           formatEta(p.Lambda),
		"gamma":            formatEta(p.Gamma),
		"subsample":        formatEta(p.Subsample),
		"seed":             strconv.FormatInt(p.Seed, 10),
	}
}

// TrainOptions selects the training data and hyperparameters.
type TrainOptions struct {
	TrainFile    string
	ManifestFile string
	Target       string
	Experiment   string
	Params       gbm.Params
}

// TrainResult describes a finished training run.
type TrainResult struct {
	RunID        string
	RunName      string
	ArtifactURI  string
	LocalPath    string
	LocalVersion int
	Rows         int
	Model        *gbm.Model
	Duration     time.Duration
}

// Trainer fits models and records them as tracking runs.
type Trainer struct {
	runs    Runs
	objects objectstore.Store
	bucket  string
	models  *storage.Store
}

// NewTrainer creates a trainer. models may be nil to skip the local copy.
func NewTrainer(runs Runs, objects objectstore.Store, bucket string, models *storage.Store) *Trainer {
	return &Trainer{runs: runs, objects: objects, bucket: bucket, models: models}
}

// Train fits a model on the training split inside a new tracking run. On
// any failure after the run starts the run ends FAILED.
func (t *Trainer) Train(ctx context.Context, opts TrainOptions) (res *TrainResult, err error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	exp, err := t.runs.GetOrCreateExperiment(ctx, opts.Experiment)
	if err != nil {
		return nil, err
	}
	runName := RunName(opts.Params)
	run, err := t.runs.StartRun(ctx, exp.ID, runName)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWithRunID(ctx, run.ID)
	log := logging.Ctx(ctx)
	start := time.Now()

	defer func() {
		if err == nil {
			return
		}
		metrics.RecordTrainingRun("failed", time.Since(start))
		if endErr := t.runs.EndRun(context.WithoutCancel(ctx), run.ID, tracking.StatusFailed); endErr != nil {
			log.Error().Err(endErr).Msg("Failed to mark run as failed")
		}
	}()

	log.Info().Str("run_name", runName).Msg("Training started")

	train, err := features.ReadCSV(opts.TrainFile)
	if err != nil {
		return nil, err
	}
	names, err := features.ReadManifest(opts.ManifestFile)
	if err != nil {
		return nil, err
	}
	x, err := features.SelectFeatures(train, names)
	if err != nil {
		return nil, err
	}
	y, err := targetValues(train, opts.Target)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rows", len(x)).Int("features", len(names)).Msg("Training data loaded")

	if err := t.runs.LogParams(ctx, run.ID, paramMap(opts.Params)); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fitStart := time.Now()
	model, err := gbm.Fit(x, y, names, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	fitDur := time.Since(fitStart)

	name := ModelName(opts.Params)
	meta := storage.ArtifactMetadata{
		Name:               name,
		Kind:               "model",
		RunID:              run.ID,
		CreatedAt:          model.TrainedAt,
		Rows:               len(x),
		Features:           len(names),
		TrainingDurationMS: fitDur.Milliseconds(),
	}
	data, meta, err := storage.Encode(model, meta)
	if err != nil {
		return nil, err
	}

	key := RunArtifactKey(run.ID)
	if err := t.objects.Upload(ctx, key, data); err != nil {
		return nil, fmt.Errorf("upload model: %w", err)
	}
	uri := objectstore.ObjectInfo{Bucket: t.bucket, Key: key}.URI()
	if err := t.runs.SetArtifactURI(ctx, run.ID, uri); err != nil {
		return nil, err
	}

	res = &TrainResult{
		RunID:       run.ID,
		RunName:     runName,
		ArtifactURI: uri,
		Rows:        len(x),
		Model:       model,
	}
	if t.models != nil {
		version, path, err := t.models.Save(ctx, name, model, meta)
		if err != nil {
			return nil, fmt.Errorf("save model locally: %w", err)
		}
		res.LocalVersion, res.LocalPath = version, path
		log.Info().Str("path", path).Int("version", version).Msg("Model saved locally")
	}

	if err := t.runs.LogMetrics(ctx, run.ID, map[string]float64{
		MetricTrainRMSE:         model.TrainRMSE,
		MetricFeatureImportance: float64(len(model.FeatureImportance())),
	}); err != nil {
		return nil, err
	}
	if err := t.runs.EndRun(ctx, run.ID, tracking.StatusFinished); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	metrics.RecordTrainingRun("finished", res.Duration)
	log.Info().
		Float64("train_rmse", model.TrainRMSE).
		Str("artifact_uri", uri).
		Dur("duration", res.Duration).
		Msg("Training finished")
	return res, nil
}
