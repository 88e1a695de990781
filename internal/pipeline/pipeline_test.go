// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/gbm"
	"github.com/tomtom215/cinescore/internal/objectstore"
	"github.com/tomtom215/cinescore/internal/storage"
	"github.com/tomtom215/cinescore/internal/testinfra"
	"github.com/tomtom215/cinescore/internal/tracking"
)

const (
	testBucket     = "cinescore"
	testExperiment = "Movie Rating Prediction"
	testModel      = "MovieRatingGBMModel"
)

type env struct {
	data    *testinfra.Dataset
	runs    *tracking.Store
	objects *objectstore.BadgerStore
	models  *storage.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	runs, err := tracking.Open(context.Background(), tracking.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = runs.Close() })

	objects, err := objectstore.Open(objectstore.Options{Bucket: testBucket, InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = objects.Close() })

	models, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &env{data: testinfra.ProcessedDataset(t, 40), runs: runs, objects: objects, models: models}
}

func (e *env) trainOptions(params gbm.Params) TrainOptions {
	return TrainOptions{
		TrainFile:    e.data.Path(e.data.Files.Train),
		ManifestFile: e.data.Path(e.data.Files.FeatureNames),
		Target:       "vote_average",
		Experiment:   testExperiment,
		Params:       params,
	}
}

func (e *env) evalConfig() EvalConfig {
	return EvalConfig{
		TestFile:      e.data.Path(e.data.Files.Test),
		ManifestFile:  e.data.Path(e.data.Files.FeatureNames),
		TransformFile: e.data.Path(e.data.Files.Transform),
		Target:        "vote_average",
		Experiment:    testExperiment,
	}
}

func (e *env) loader() *ArtifactLoader {
	return &ArtifactLoader{Objects: e.objects, Bucket: testBucket, Registry: e.runs}
}

func smallParams(depth int, eta float64) gbm.Params {
	p := gbm.DefaultParams()
	p.MaxDepth = depth
	p.Eta = eta
	p.NumRounds = 10
	return p
}

func TestNames(t *testing.T) {
	p := gbm.DefaultParams()
	if got := RunName(p); got != "GBM_Train_MaxDepth_6_Eta_0.3" {
		t.Errorf("RunName() = %s", got)
	}
	if got := ModelName(p); got != "gbm_md6_eta0_3" {
		t.Errorf("ModelName() = %s", got)
	}
	if got := storage.Filename(ModelName(p), 1); got != config.Default().Model.Filename {
		t.Errorf("first model file = %s, want configured default %s", got, config.Default().Model.Filename)
	}
	if got := RunArtifactKey("abc"); got != "runs/abc/model.gob.gz" {
		t.Errorf("RunArtifactKey() = %s", got)
	}
	if got := ParamsFromConfig(config.Default().Model.BoostParams); got != p {
		t.Errorf("ParamsFromConfig(defaults) = %+v, want %+v", got, p)
	}
}

func TestTrainEvaluateRegisterBest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	trainer := NewTrainer(e.runs, e.objects, testBucket, e.models)
	evaluator := NewEvaluator(e.runs, e.loader(), e.evalConfig())

	var results []*TrainResult
	for _, p := range []gbm.Params{smallParams(1, 0.05), smallParams(4, 0.3)} {
		res, err := trainer.Train(ctx, e.trainOptions(p))
		if err != nil {
			t.Fatalf("Train(%s) error = %v", RunName(p), err)
		}
		if res.LocalVersion != 1 || filepath.Base(res.LocalPath) != storage.Filename(ModelName(p), 1) {
			t.Errorf("local model = v%d %s", res.LocalVersion, res.LocalPath)
		}
		if res.ArtifactURI != "badger://cinescore/runs/"+res.RunID+"/model.gob.gz" {
			t.Errorf("ArtifactURI = %s", res.ArtifactURI)
		}
		if _, err := evaluator.Evaluate(ctx, res.RunID); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		results = append(results, res)
	}

	run, err := e.runs.GetRun(ctx, results[0].RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != tracking.StatusFinished {
		t.Errorf("status = %s, want FINISHED", run.Status)
	}
	if run.Params["max_depth"] != "1" || run.Params["eta"] != "0.05" {
		t.Errorf("params = %v", run.Params)
	}
	for _, k := range []string{"mse", "rmse", "r2", "mae", MetricTrainRMSE, MetricFeatureImportance} {
		if _, ok := run.Metrics[k]; !ok {
			t.Errorf("metric %s not logged", k)
		}
	}

	// Best run by test rmse
	best := results[0]
	other, _ := e.runs.GetRun(ctx, results[1].RunID)
	if other.Metrics["rmse"] < run.Metrics["rmse"] {
		best = results[1]
	}

	reg := NewRegistrar(e.runs, e.runs, testModel, testExperiment)
	if _, err := reg.Register(ctx, PolicyRun, results[0].RunID); err != nil {
		t.Fatalf("Register(run) error = %v", err)
	}
	mv, err := reg.Register(ctx, PolicyBest, "")
	if err != nil {
		t.Fatalf("Register(best) error = %v", err)
	}
	if mv.RunID != best.RunID || mv.Stage != tracking.StageProduction {
		t.Errorf("promoted = %+v, want run %s in Production", mv, best.RunID)
	}

	// Promoting again keeps a single Production version
	if _, err := reg.Register(ctx, PolicyBest, ""); err != nil {
		t.Fatal(err)
	}
	versions, _ := e.runs.ListVersions(ctx, testModel)
	production := 0
	for _, v := range versions {
		if v.Stage == tracking.StageProduction {
			production++
		}
	}
	if production != 1 {
		t.Errorf("%d Production versions, want 1", production)
	}

	m, err := e.loader().Load(ctx, "models:/"+testModel+"/Production")
	if err != nil {
		t.Fatalf("Load(models:/...) error = %v", err)
	}
	if len(m.Trees) != 10 {
		t.Errorf("trees = %d", len(m.Trees))
	}
}

func TestTrainFailureMarksRunFailed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	names, err := features.ReadManifest(e.data.Path(e.data.Files.FeatureNames))
	if err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(t.TempDir(), "feature_names.json")
	data, _ := json.Marshal(append(names, "not_a_column"))
	if err := os.WriteFile(bad, data, 0o600); err != nil {
		t.Fatal(err)
	}

	opts := e.trainOptions(smallParams(2, 0.3))
	opts.ManifestFile = bad
	_, err = NewTrainer(e.runs, e.objects, testBucket, nil).Train(ctx, opts)
	if !apperrors.IsValidation(err) {
		t.Fatalf("Train() error = %v, want ValidationError", err)
	}

	exp, _ := e.runs.GetExperiment(ctx, testExperiment)
	run, err := e.runs.LatestRun(ctx, exp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != tracking.StatusFailed {
		t.Errorf("status = %s, want FAILED", run.Status)
	}
}

func TestEvaluateErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := NewEvaluator(e.runs, e.loader(), e.evalConfig()).Evaluate(ctx, ""); !apperrors.IsNotFound(err) {
		t.Errorf("Evaluate() with no runs error = %v, want NotFoundError", err)
	}

	res, err := NewTrainer(e.runs, e.objects, testBucket, nil).Train(ctx, e.trainOptions(smallParams(2, 0.3)))
	if err != nil {
		t.Fatal(err)
	}

	names, _ := features.ReadManifest(e.data.Path(e.data.Files.FeatureNames))
	short := filepath.Join(t.TempDir(), "feature_names.json")
	if err := features.WriteManifest(short, names[:len(names)-1]); err != nil {
		t.Fatal(err)
	}
	cfg := e.evalConfig()
	cfg.ManifestFile = short
	if _, err := NewEvaluator(e.runs, e.loader(), cfg).Evaluate(ctx, res.RunID); !apperrors.IsValidation(err) {
		t.Errorf("Evaluate() with mismatched manifest error = %v, want ValidationError", err)
	}

	// Empty run id evaluates the latest run
	out, err := NewEvaluator(e.runs, e.loader(), e.evalConfig()).Evaluate(ctx, "")
	if err != nil {
		t.Fatalf("Evaluate(latest) error = %v", err)
	}
	if out.RunID != res.RunID || out.Rows != e.data.Result.Split.Test.Len() {
		t.Errorf("Evaluate(latest) = %+v", out)
	}
}

func TestRegisterInvalidPolicy(t *testing.T) {
	e := newEnv(t)
	reg := NewRegistrar(e.runs, e.runs, testModel, testExperiment)
	if _, err := reg.Register(context.Background(), "newest", ""); !apperrors.IsValidation(err) {
		t.Errorf("Register() error = %v, want ValidationError", err)
	}
	if _, err := reg.Register(context.Background(), PolicyBest, ""); !apperrors.IsNotFound(err) {
		t.Errorf("Register(best) without runs error = %v, want NotFoundError", err)
	}
}

func TestRegistrarExecute(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := NewTrainer(e.runs, e.objects, testBucket, nil).Train(ctx, e.trainOptions(smallParams(2, 0.3)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEvaluator(e.runs, e.loader(), e.evalConfig()).Evaluate(ctx, res.RunID); err != nil {
		t.Fatal(err)
	}
	reg := NewRegistrar(e.runs, e.runs, testModel, testExperiment)

	invalid := []RegisterRequest{
		{Policy: ""},
		{Policy: "newest"},
		{Policy: PolicyRun, Stage: "Live"},
		{Policy: PolicyBest, Stage: tracking.StageStaging},
	}
	for _, req := range invalid {
		if _, err := reg.Execute(ctx, req); !apperrors.IsValidation(err) {
			t.Errorf("Execute(%+v) error = %v, want ValidationError", req, err)
		}
	}
	if versions, _ := e.runs.ListVersions(ctx, testModel); len(versions) != 0 {
		t.Fatalf("rejected requests registered %d versions", len(versions))
	}

	mv, err := reg.Execute(ctx, RegisterRequest{Policy: PolicyRun, RunID: res.RunID})
	if err != nil {
		t.Fatalf("Execute(run) error = %v", err)
	}
	if mv.Stage != tracking.StageNone {
		t.Errorf("stage = %s, want None", mv.Stage)
	}

	staged, err := reg.Execute(ctx, RegisterRequest{Policy: PolicyRun, RunID: res.RunID, Stage: tracking.StageStaging})
	if err != nil {
		t.Fatalf("Execute(run, Staging) error = %v", err)
	}
	if staged.Version != mv.Version+1 || staged.Stage != tracking.StageStaging {
		t.Errorf("staged = v%d %s, want v%d Staging", staged.Version, staged.Stage, mv.Version+1)
	}

	best, err := reg.Execute(ctx, RegisterRequest{Policy: PolicyBest, Stage: tracking.StageProduction})
	if err != nil {
		t.Fatalf("Execute(best) error = %v", err)
	}
	if best.Stage != tracking.StageProduction || best.RunID != res.RunID {
		t.Errorf("best = %+v", best)
	}
}

func TestArtifactLoaderURIs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := NewTrainer(e.runs, e.objects, testBucket, e.models).Train(ctx, e.trainOptions(smallParams(2, 0.3)))
	if err != nil {
		t.Fatal(err)
	}
	l := e.loader()

	for _, uri := range []string{
		res.ArtifactURI,
		"runs:/" + res.RunID + "/model",
		"file://" + res.LocalPath,
	} {
		m, err := l.Load(ctx, uri)
		if err != nil {
			t.Errorf("Load(%s) error = %v", uri, err)
			continue
		}
		if len(m.Trees) != len(res.Model.Trees) {
			t.Errorf("Load(%s) trees = %d", uri, len(m.Trees))
		}
	}

	tests := []struct {
		uri  string
		want func(error) bool
	}{
		{"s3://bucket/key", apperrors.IsValidation},
		{"plain-path", apperrors.IsValidation},
		{"badger://other/runs/x/model.gob.gz", apperrors.IsValidation},
		{"runs:/missing/model", apperrors.IsNotFound},
		{"models:/" + testModel + "/Production", apperrors.IsNotFound},
	}
	for _, tt := range tests {
		if _, err := l.Load(ctx, tt.uri); !tt.want(err) {
			t.Errorf("Load(%s) error = %v", tt.uri, err)
		}
	}
}

func TestPredictor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := NewTrainer(e.runs, e.objects, testBucket, e.models).Train(ctx, e.trainOptions(smallParams(3, 0.3)))
	if err != nil {
		t.Fatal(err)
	}
	p := NewPredictor(e.models)

	fromTest, err := p.Predict(ctx, PredictOptions{
		ModelFile:     filepath.Base(res.LocalPath),
		TestFile:      e.data.Path(e.data.Files.Test),
		ManifestFile:  e.data.Path(e.data.Files.FeatureNames),
		TransformFile: e.data.Path(e.data.Files.Transform),
	})
	if err != nil {
		t.Fatalf("Predict(test csv) error = %v", err)
	}
	if len(fromTest) != e.data.Result.Split.Test.Len() {
		t.Errorf("predictions = %d, want %d", len(fromTest), e.data.Result.Split.Test.Len())
	}

	// Raw movies scored through the saved transform match the test split
	// predictions for the same ids.
	fromRaw, err := p.Predict(ctx, PredictOptions{
		ModelFile:     filepath.Base(res.LocalPath),
		Input:         e.data.RawFile,
		TransformFile: e.data.Path(e.data.Files.Transform),
	})
	if err != nil {
		t.Fatalf("Predict(raw) error = %v", err)
	}
	if len(fromRaw) != len(e.data.RawMovies) {
		t.Fatalf("raw predictions = %d, want %d", len(fromRaw), len(e.data.RawMovies))
	}
	byID := make(map[int64]float64, len(fromRaw))
	for _, pr := range fromRaw {
		byID[pr.MovieID] = pr.PredictedRating
	}
	for _, pr := range fromTest {
		got, ok := byID[pr.MovieID]
		if !ok {
			t.Errorf("movie %d missing from raw predictions", pr.MovieID)
			continue
		}
		if diff := got - pr.PredictedRating; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("movie %d: raw %v vs test %v", pr.MovieID, got, pr.PredictedRating)
		}
	}

	if _, err := p.Predict(ctx, PredictOptions{ModelFile: "absent_v1.gob.gz"}); !apperrors.IsNotFound(err) {
		t.Errorf("Predict(missing model) error = %v, want NotFoundError", err)
	}

	// A manifest that disagrees with the transform is rejected.
	names, _ := features.ReadManifest(e.data.Path(e.data.Files.FeatureNames))
	short := filepath.Join(t.TempDir(), "feature_names.json")
	if err := features.WriteManifest(short, names[:len(names)-1]); err != nil {
		t.Fatal(err)
	}
	_, err = p.Predict(ctx, PredictOptions{
		ModelFile:     filepath.Base(res.LocalPath),
		TestFile:      e.data.Path(e.data.Files.Test),
		ManifestFile:  short,
		TransformFile: e.data.Path(e.data.Files.Transform),
	})
	if !apperrors.IsValidation(err) {
		t.Errorf("Predict(mismatched manifest) error = %v, want ValidationError", err)
	}
}
