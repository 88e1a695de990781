// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package pipeline

import (
	"context"
	"fmt"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/tracking"
	"github.com/tomtom215/cinescore/internal/validation"
)

// Registration policies.
const (
	PolicyRun  = "run"
	PolicyBest = "best"
)

// SelectionMetric is the metric the best policy minimizes.
const SelectionMetric = "rmse"

// Versions is the registry capability the registrar needs.
type Versions interface {
	tracking.Registry
	FindVersionByRun(ctx context.Context, name, runID string) (*tracking.ModelVersion, error)
}

var _ Versions = (*tracking.Store)(nil)

// Registrar registers runs as model versions and promotes the best one.
type Registrar struct {
	runs       Runs
	versions   Versions
	modelName  string
	experiment string
}

// NewRegistrar creates a registrar for the model name.
func NewRegistrar(runs Runs, versions Versions, modelName, experiment string) *Registrar {
	return &Registrar{runs: runs, versions: versions, modelName: modelName, experiment: experiment}
}

// Register applies policy. PolicyRun registers runID (or the latest run)
// as a new version in stage None. PolicyBest picks the run with the lowest
// rmse, registers it when needed and makes it the only Production version.
func (r *Registrar) Register(ctx context.Context, policy, runID string) (*tracking.ModelVersion, error) {
	switch policy {
	case PolicyRun, "":
		return r.registerRun(ctx, runID)
	case PolicyBest:
		return r.promoteBest(ctx)
	}
	return nil, apperrors.Validation("policy", fmt.Sprintf("must be %q or %q, got %q", PolicyRun, PolicyBest, policy))
}

// RegisterRequest is one registration as given on the command line. Stage
// optionally moves the registered version out of None; with PolicyBest it
// may only name Production.
type RegisterRequest struct {
	Policy string `flag:"policy" validate:"required,oneof=run best"`
	RunID  string `flag:"run_id"`
	Stage  string `flag:"stage" validate:"omitempty,registry_stage"`
}

// Execute validates req, registers according to its policy and applies the
// requested stage. Moving a version into Production archives the others.
func (r *Registrar) Execute(ctx context.Context, req RegisterRequest) (*tracking.ModelVersion, error) {
	if verr := validation.ValidateStruct(&req); verr != nil {
		field := "request"
		if errs := verr.Errors(); len(errs) > 0 {
			field = errs[0].Field()
		}
		return nil, apperrors.Validation(field, verr.Error())
	}
	if req.Policy == PolicyBest && req.Stage != "" && req.Stage != tracking.StageProduction {
		return nil, apperrors.Validation("stage", fmt.Sprintf("policy %q always promotes to %s", PolicyBest, tracking.StageProduction))
	}

	mv, err := r.Register(ctx, req.Policy, req.RunID)
	if err != nil {
		return nil, err
	}
	if req.Stage == "" || req.Stage == mv.Stage {
		return mv, nil
	}
	moved, err := r.versions.TransitionStage(ctx, r.modelName, mv.Version, req.Stage, req.Stage == tracking.StageProduction)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Str("model", moved.Name).
		Int("version", moved.Version).
		Str("stage", moved.Stage).
		Msg("Model version moved")
	return moved, nil
}

func (r *Registrar) registerRun(ctx context.Context, runID string) (*tracking.ModelVersion, error) {
	run, err := ResolveRun(ctx, r.runs, r.experiment, runID)
	if err != nil {
		return nil, err
	}
	mv, err := r.versions.Register(ctx, r.modelName, run.ID, run.ArtifactURI)
	if err != nil {
		return nil, err
	}
	logging.Ctx(logging.ContextWithRunID(ctx, run.ID)).Info().
		Str("model", mv.Name).
		Int("version", mv.Version).
		Msg("Run registered")
	return mv, nil
}

func (r *Registrar) promoteBest(ctx context.Context) (*tracking.ModelVersion, error) {
	exp, err := r.runs.GetExperiment(ctx, r.experiment)
	if err != nil {
		return nil, err
	}
	best, err := r.runs.BestRun(ctx, exp.ID, SelectionMetric)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWithRunID(ctx, best.ID)
	log := logging.Ctx(ctx)
	log.Info().Float64(SelectionMetric, best.Metrics[SelectionMetric]).Msg("Best run selected")

	mv, err := r.versions.FindVersionByRun(ctx, r.modelName, best.ID)
	if apperrors.IsNotFound(err) {
		mv, err = r.versions.Register(ctx, r.modelName, best.ID, best.ArtifactURI)
	}
	if err != nil {
		return nil, err
	}

	if mv.Stage == tracking.StageProduction {
		log.Info().Int("version", mv.Version).Msg("Best version already in Production")
	}
	promoted, err := r.versions.TransitionStage(ctx, r.modelName, mv.Version, tracking.StageProduction, true)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("model", promoted.Name).
		Int("version", promoted.Version).
		Msg("Model promoted to Production")
	return promoted, nil
}
