// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package tracking

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{URI: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// finishedRun creates a finished run with an artifact and an rmse metric.
func finishedRun(t *testing.T, s *Store, expID string, rmse float64) *Run {
	t.Helper()
	ctx := context.Background()
	run, err := s.StartRun(ctx, expID, "GBM_Train_MaxDepth_6_Eta_0.3")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if err := s.SetArtifactURI(ctx, run.ID, "badger://cinescore/runs/"+run.ID+"/model.gob.gz"); err != nil {
		t.Fatalf("SetArtifactURI() error = %v", err)
	}
	if err := s.EndRun(ctx, run.ID, StatusFinished); err != nil {
		t.Fatalf("EndRun() error = %v", err)
	}
	if err := s.LogMetrics(ctx, run.ID, map[string]float64{"rmse": rmse}); err != nil {
		t.Fatalf("LogMetrics() error = %v", err)
	}
	return run
}

func TestGetOrCreateExperiment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.GetOrCreateExperiment(ctx, "Movie Rating Prediction")
	if err != nil {
		t.Fatalf("GetOrCreateExperiment() error = %v", err)
	}
	b, err := s.GetOrCreateExperiment(ctx, "Movie Rating Prediction")
	if err != nil {
		t.Fatalf("second GetOrCreateExperiment() error = %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("experiment ids differ: %s vs %s", a.ID, b.ID)
	}
	if _, err := s.GetExperiment(ctx, "other"); !apperrors.IsNotFound(err) {
		t.Errorf("GetExperiment(other) error = %v, want NotFoundError", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	exp, _ := s.GetOrCreateExperiment(ctx, "exp")

	run, err := s.StartRun(ctx, exp.ID, "train")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if err := s.LogParams(ctx, run.ID, map[string]string{"max_depth": "6", "eta": "0.3"}); err != nil {
		t.Fatalf("LogParams() error = %v", err)
	}
	if err := s.LogMetrics(ctx, run.ID, map[string]float64{"train_rmse": 0.5}); err != nil {
		t.Fatalf("LogMetrics() error = %v", err)
	}
	if err := s.LogMetrics(ctx, run.ID, map[string]float64{"train_rmse": 0.4}); err != nil {
		t.Fatalf("LogMetrics() overwrite error = %v", err)
	}
	if err := s.EndRun(ctx, run.ID, StatusFailed); err != nil {
		t.Fatalf("EndRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusFailed || got.EndTime == nil {
		t.Errorf("status = %s end = %v", got.Status, got.EndTime)
	}
	if got.Params["max_depth"] != "6" || got.Metrics["train_rmse"] != 0.4 {
		t.Errorf("params = %v metrics = %v", got.Params, got.Metrics)
	}

	if err := s.EndRun(ctx, run.ID, "DONE"); !apperrors.IsValidation(err) {
		t.Errorf("EndRun(DONE) error = %v, want ValidationError", err)
	}
	if err := s.EndRun(ctx, "missing", StatusFinished); !apperrors.IsNotFound(err) {
		t.Errorf("EndRun(missing) error = %v, want NotFoundError", err)
	}
	if err := s.LogMetrics(ctx, run.ID, map[string]float64{"rmse": math.NaN()}); !apperrors.IsValidation(err) {
		t.Errorf("LogMetrics(NaN) error = %v, want ValidationError", err)
	}
}

func TestLatestAndBestRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	exp, _ := s.GetOrCreateExperiment(ctx, "exp")

	if _, err := s.LatestRun(ctx, exp.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("LatestRun() on empty experiment error = %v", err)
	}

	r1 := finishedRun(t, s, exp.ID, 0.9)
	r2 := finishedRun(t, s, exp.ID, 0.7)
	r3 := finishedRun(t, s, exp.ID, 0.8)

	latest, err := s.LatestRun(ctx, exp.ID)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if latest.ID != r3.ID {
		t.Errorf("LatestRun() = %s, want %s", latest.ID, r3.ID)
	}

	best, err := s.BestRun(ctx, exp.ID, "rmse")
	if err != nil {
		t.Fatalf("BestRun() error = %v", err)
	}
	if best.ID != r2.ID {
		t.Errorf("BestRun() = %s, want %s (r1=%s)", best.ID, r2.ID, r1.ID)
	}

	runs, err := s.ListRuns(ctx, exp.ID)
	if err != nil || len(runs) != 3 {
		t.Errorf("ListRuns() = %d runs, err %v", len(runs), err)
	}
}

// After promoting the best run exactly one version is in Production.
func TestPromotionLeavesSingleProduction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	exp, _ := s.GetOrCreateExperiment(ctx, "exp")
	const name = "MovieRatingGBMModel"

	var versions []*ModelVersion
	for _, rmse := range []float64{0.9, 0.6, 0.8} {
		run := finishedRun(t, s, exp.ID, rmse)
		mv, err := s.Register(ctx, name, run.ID, "")
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if mv.Stage != StageNone {
			t.Errorf("new version stage = %s, want None", mv.Stage)
		}
		versions = append(versions, mv)
	}
	if versions[2].Version != 3 {
		t.Fatalf("versions = %d, want 3", versions[2].Version)
	}

	// Two versions in Production without archiving
	for _, v := range versions[:2] {
		if _, err := s.TransitionStage(ctx, name, v.Version, StageProduction, false); err != nil {
			t.Fatal(err)
		}
	}

	best, err := s.BestRun(ctx, exp.ID, "rmse")
	if err != nil {
		t.Fatal(err)
	}
	mv, err := s.FindVersionByRun(ctx, name, best.ID)
	if err != nil {
		t.Fatalf("FindVersionByRun() error = %v", err)
	}
	if _, err := s.TransitionStage(ctx, name, mv.Version, StageProduction, true); err != nil {
		t.Fatalf("TransitionStage() error = %v", err)
	}

	all, err := s.ListVersions(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	production := 0
	for _, v := range all {
		if v.Stage == StageProduction {
			production++
			if v.Version != 2 {
				t.Errorf("version %d in Production, want 2", v.Version)
			}
		}
	}
	if production != 1 {
		t.Errorf("%d versions in Production, want 1", production)
	}
	if all[0].Stage != StageArchived {
		t.Errorf("version 1 stage = %s, want Archived", all[0].Stage)
	}

	latest, err := s.GetLatest(ctx, name, StageProduction)
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if latest.Version != 2 || latest.URI() != "models:/MovieRatingGBMModel/2" {
		t.Errorf("GetLatest() = %+v", latest)
	}
}

func TestRegistryErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	exp, _ := s.GetOrCreateExperiment(ctx, "exp")

	if _, err := s.GetLatest(ctx, "m", StageProduction); !apperrors.IsNotFound(err) {
		t.Errorf("GetLatest() error = %v, want NotFoundError", err)
	}
	if _, err := s.GetLatest(ctx, "m", "Live"); !apperrors.IsValidation(err) {
		t.Errorf("GetLatest(Live) error = %v, want ValidationError", err)
	}
	if _, err := s.Register(ctx, "m", "missing", ""); !apperrors.IsNotFound(err) {
		t.Errorf("Register(missing run) error = %v, want NotFoundError", err)
	}

	run, _ := s.StartRun(ctx, exp.ID, "no-artifact")
	if _, err := s.Register(ctx, "m", run.ID, ""); !apperrors.IsValidation(err) {
		t.Errorf("Register(no artifact) error = %v, want ValidationError", err)
	}
	if _, err := s.TransitionStage(ctx, "m", 7, StageProduction, true); !apperrors.IsNotFound(err) {
		t.Errorf("TransitionStage(missing) error = %v, want NotFoundError", err)
	}
	if _, err := s.TransitionStage(ctx, "m", 1, "Live", true); !apperrors.IsValidation(err) {
		t.Errorf("TransitionStage(Live) error = %v, want ValidationError", err)
	}
}

func TestReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mlruns", "tracking.duckdb")

	rw, err := Open(ctx, Options{URI: "duckdb://" + path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	exp, _ := rw.GetOrCreateExperiment(ctx, "exp")
	run := finishedRun(t, rw, exp.ID, 0.5)
	mv, err := rw.Register(ctx, "m", run.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rw.TransitionStage(ctx, "m", mv.Version, StageProduction, true); err != nil {
		t.Fatal(err)
	}
	if err := rw.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := Open(ctx, Options{URI: path, ReadOnly: true})
	if err != nil {
		t.Fatalf("Open(read-only) error = %v", err)
	}
	defer ro.Close()

	got, err := ro.GetLatest(ctx, "m", StageProduction)
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if got.RunID != run.ID {
		t.Errorf("RunID = %s, want %s", got.RunID, run.ID)
	}
	if _, err := ro.StartRun(ctx, exp.ID, "x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("StartRun() on read-only store error = %v, want ErrReadOnly", err)
	}
	if _, err := ro.GetOrCreateExperiment(ctx, "new"); !apperrors.IsNotFound(err) {
		t.Errorf("GetOrCreateExperiment() on read-only store error = %v", err)
	}

	if _, err := Open(ctx, Options{ReadOnly: true}); err == nil {
		t.Error("read-only in-memory store should fail")
	}
	if _, err := Open(ctx, Options{URI: filepath.Join(t.TempDir(), "absent.duckdb"), ReadOnly: true}); err == nil {
		t.Error("read-only open of a missing file should fail")
	}
}
