// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package serving

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/gbm"
	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/testinfra"
	"github.com/tomtom215/cinescore/internal/tracking"
)

type fakeResolver struct {
	mv    *tracking.ModelVersion
	err   error
	calls int
}

func (f *fakeResolver) GetLatest(_ context.Context, name, stage string) (*tracking.ModelVersion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if stage != tracking.StageProduction {
		return nil, apperrors.NotFound("model version", name+"/"+stage, nil)
	}
	return f.mv, nil
}

type fakeLoader struct {
	model *gbm.Model
	uris  []string
}

func (f *fakeLoader) Load(_ context.Context, uri string) (*gbm.Model, error) {
	f.uris = append(f.uris, uri)
	return f.model, nil
}

func fitModel(t *testing.T, data *testinfra.Dataset) *gbm.Model {
	t.Helper()
	train, err := features.ReadCSV(data.Path(data.Files.Train))
	if err != nil {
		t.Fatal(err)
	}
	names, err := features.ReadManifest(data.Path(data.Files.FeatureNames))
	if err != nil {
		t.Fatal(err)
	}
	x, err := features.SelectFeatures(train, names)
	if err != nil {
		t.Fatal(err)
	}
	target, _ := train.Column("vote_average")
	params := gbm.DefaultParams()
	params.NumRounds = 10
	model, err := gbm.Fit(x, target.Num, names, params)
	if err != nil {
		t.Fatal(err)
	}
	return model
}

func configFor(data *testinfra.Dataset) Config {
	return Config{
		ModelName:     "MovieRatingGBMModel",
		TestFile:      data.Path(data.Files.Test),
		ManifestFile:  data.Path(data.Files.FeatureNames),
		TransformFile: data.Path(data.Files.Transform),
	}
}

func TestInitialize(t *testing.T) {
	data := testinfra.ProcessedDataset(t, 40)
	resolver := &fakeResolver{mv: &tracking.ModelVersion{
		Name: "MovieRatingGBMModel", Version: 3, RunID: "run-1",
		Source: "badger://cinescore/runs/run-1/model.gob.gz", Stage: tracking.StageProduction,
	}}
	loader := &fakeLoader{model: fitModel(t, data)}
	state := NewState(resolver, loader, configFor(data))

	if _, err := state.Predictions(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Predictions before init: got %v, want ErrNotReady", err)
	}
	if err := state.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	snap := state.Snapshot()
	if !snap.Ready() || snap.ModelVersion != 3 || snap.ModelRunID != "run-1" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(loader.uris) != 1 || loader.uris[0] != resolver.mv.Source {
		t.Errorf("loader uris = %v", loader.uris)
	}

	test, _ := features.ReadCSV(data.Path(data.Files.Test))
	preds, err := state.Predictions()
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != test.Len() || snap.SampleCount != test.Len() {
		t.Errorf("cached %d predictions for %d rows", len(preds), test.Len())
	}

	if err := state.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize: got %v", err)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver called %d times, want 1", resolver.calls)
	}
}

func TestInitializeFailureStaysInitializing(t *testing.T) {
	data := testinfra.ProcessedDataset(t, 30)
	tests := []struct {
		name     string
		resolver *fakeResolver
		cfg      func(Config) Config
		check    func(error) bool
	}{
		{
			name:     "no production model",
			resolver: &fakeResolver{err: apperrors.NotFound("model version", "MovieRatingGBMModel/Production", nil)},
			cfg:      func(c Config) Config { return c },
			check:    apperrors.IsNotFound,
		},
		{
			name:     "registry unreachable",
			resolver: &fakeResolver{err: apperrors.Upstream("tracking", 0, errors.New("connection refused"))},
			cfg:      func(c Config) Config { return c },
			check:    apperrors.IsUpstream,
		},
		{
			name:     "missing test csv",
			resolver: &fakeResolver{mv: &tracking.ModelVersion{Name: "m", Version: 1}},
			cfg: func(c Config) Config {
				c.TestFile = data.Path("missing.csv")
				return c
			},
			check: apperrors.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState(tt.resolver, &fakeLoader{model: fitModel(t, data)}, tt.cfg(configFor(data)))
			err := state.Initialize(context.Background())
			if err == nil || !tt.check(err) {
				t.Fatalf("Initialize error = %v", err)
			}
			snap := state.Snapshot()
			if snap.Status != StatusInitializing || snap.Err == nil {
				t.Errorf("snapshot = %+v, want initializing with error", snap)
			}
			if _, err := state.Top(5); !errors.Is(err, ErrNotReady) {
				t.Errorf("Top: got %v, want ErrNotReady", err)
			}
			if _, err := state.Stats(); !errors.Is(err, ErrNotReady) {
				t.Errorf("Stats: got %v, want ErrNotReady", err)
			}
		})
	}
}

func TestTop(t *testing.T) {
	state := NewReadyState([]pipeline.Prediction{
		{MovieID: 1, PredictedRating: 8.1},
		{MovieID: 2, PredictedRating: 6.4},
		{MovieID: 3, PredictedRating: 9.0},
	})

	top, err := state.Top(2)
	if err != nil {
		t.Fatal(err)
	}
	want := []RankedPrediction{
		{Rank: 1, MovieID: 3, PredictedRating: 9.0},
		{Rank: 2, MovieID: 1, PredictedRating: 8.1},
	}
	if len(top) != len(want) {
		t.Fatalf("got %d rows, want %d", len(top), len(want))
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, top[i], want[i])
		}
	}

	all, _ := state.Top(50)
	if len(all) != 3 {
		t.Errorf("Top(50) returned %d rows, want 3", len(all))
	}
}

func TestTopTiesAndRounding(t *testing.T) {
	state := NewReadyState([]pipeline.Prediction{
		{MovieID: 10, PredictedRating: 7.004},
		{MovieID: 11, PredictedRating: 7.456},
		{MovieID: 12, PredictedRating: 7.004},
	})
	top, _ := state.Top(3)
	if top[0].MovieID != 11 || top[0].PredictedRating != 7.46 {
		t.Errorf("first = %+v", top[0])
	}
	if top[1].MovieID != 10 || top[2].MovieID != 12 {
		t.Errorf("ties reordered: %+v", top)
	}
	if top[1].PredictedRating != 7.0 {
		t.Errorf("rounded rating = %v, want 7", top[1].PredictedRating)
	}
}

func TestStats(t *testing.T) {
	state := NewReadyState([]pipeline.Prediction{
		{MovieID: 1, PredictedRating: 4.0},
		{MovieID: 2, PredictedRating: 6.0},
		{MovieID: 3, PredictedRating: 8.0},
		{MovieID: 4, PredictedRating: 9.5},
		{MovieID: 5, PredictedRating: 10},
	})
	st, err := state.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalMovies != 5 || st.AverageRating != 7.5 || st.MinRating != 4 || st.MaxRating != 10 {
		t.Errorf("stats = %+v", st)
	}
	if st.StdRating != 2.24 {
		t.Errorf("std = %v, want 2.24", st.StdRating)
	}
	want := map[string]int{"0-5": 1, "5-6": 0, "6-7": 1, "7-8": 0, "8-9": 1, "9-10": 2}
	for k, v := range want {
		if st.Distribution[k] != v {
			t.Errorf("bucket %s = %d, want %d", k, st.Distribution[k], v)
		}
	}
}

func TestStatsEmpty(t *testing.T) {
	st, err := NewReadyState(nil).Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalMovies != 0 || len(st.Distribution) != len(RatingBuckets) {
		t.Errorf("stats = %+v", st)
	}
}
