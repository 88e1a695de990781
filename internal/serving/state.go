// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

/*
Package serving holds the prediction cache behind the HTTP API.

A State starts in StatusInitializing. Initialize resolves the Production
model, scores the test split once and moves the state to StatusReady,
which is terminal. A failed initialization leaves the state initializing
with the error recorded; the cache is never partially populated.
*/
package serving

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/metrics"
	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/tracking"
)

// Status is the lifecycle state of the predictor.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
)

// ErrNotReady is returned by cache reads before initialization succeeds.
var ErrNotReady = errors.New("predictor is not ready")

// ErrAlreadyInitialized is returned when Initialize runs on a ready state.
var ErrAlreadyInitialized = errors.New("predictor already initialized")

// VersionResolver finds the model version to serve.
type VersionResolver interface {
	GetLatest(ctx context.Context, name, stage string) (*tracking.ModelVersion, error)
}

// Config locates the served model and the rows to score.
type Config struct {
	ModelName     string
	TestFile      string
	ManifestFile  string
	TransformFile string
}

// State is the serving application state shared by all handlers.
type State struct {
	resolver VersionResolver
	loader   pipeline.ModelLoader
	cfg      Config

	mu          sync.RWMutex
	status      Status
	lastErr     error
	version     *tracking.ModelVersion
	predictions []pipeline.Prediction
	dataRows    int
	readyAt     time.Time
	initTook    time.Duration
}

// NewState creates an initializing state.
func NewState(resolver VersionResolver, loader pipeline.ModelLoader, cfg Config) *State {
	return &State{
		resolver: resolver,
		loader:   loader,
		cfg:      cfg,
		status:   StatusInitializing,
	}
}

// NewReadyState creates a state that is already serving preds. It is used
// when predictions come from somewhere other than the registry.
func NewReadyState(preds []pipeline.Prediction) *State {
	s := &State{status: StatusReady, readyAt: time.Now()}
	s.predictions = append([]pipeline.Prediction(nil), preds...)
	s.dataRows = len(preds)
	return s
}

// Initialize loads the Production model and caches a prediction for every
// test row.
func (s *State) Initialize(ctx context.Context) error {
	s.mu.RLock()
	ready := s.status == StatusReady
	s.mu.RUnlock()
	if ready {
		return ErrAlreadyInitialized
	}

	log := logging.WithComponent("serving")
	start := time.Now()

	mv, preds, rows, err := s.load(ctx)
	took := time.Since(start)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		metrics.SetServingReady(false, 0, took)
		log.Error().Err(err).Dur("duration", took).Msg("Predictor initialization failed")
		return err
	}

	s.mu.Lock()
	s.version = mv
	s.predictions = preds
	s.dataRows = rows
	s.status = StatusReady
	s.lastErr = nil
	s.readyAt = time.Now()
	s.initTook = took
	s.mu.Unlock()

	metrics.SetServingReady(true, len(preds), took)
	log.Info().
		Str("model", mv.Name).
		Int("version", mv.Version).
		Int("predictions", len(preds)).
		Dur("duration", took).
		Msg("Predictor ready")
	return nil
}

func (s *State) load(ctx context.Context) (*tracking.ModelVersion, []pipeline.Prediction, int, error) {
	mv, err := s.resolver.GetLatest(ctx, s.cfg.ModelName, tracking.StageProduction)
	if err != nil {
		return nil, nil, 0, err
	}
	model, err := s.loader.Load(ctx, mv.Source)
	if err != nil {
		return nil, nil, 0, err
	}

	transform, err := features.LoadTransform(s.cfg.TransformFile)
	if err != nil {
		return nil, nil, 0, err
	}
	test, err := features.ReadCSV(s.cfg.TestFile)
	if err != nil {
		return nil, nil, 0, err
	}
	names, err := features.ReadManifest(s.cfg.ManifestFile)
	if err != nil {
		return nil, nil, 0, err
	}
	if err := transform.VerifyManifest(names); err != nil {
		return nil, nil, 0, err
	}

	preds, err := pipeline.Score(model, test, names)
	if err != nil {
		return nil, nil, 0, err
	}
	return mv, preds, test.Len(), nil
}

// Snapshot is a point-in-time view of the state.
type Snapshot struct {
	Status       Status
	Err          error
	ModelName    string
	ModelVersion int
	ModelRunID   string
	ModelSource  string
	SampleCount  int
	Predictions  int
	ReadyAt      time.Time
	InitDuration time.Duration
}

// Ready reports whether the cache is populated.
func (s Snapshot) Ready() bool { return s.Status == StatusReady }

// ModelLoaded reports whether a model has been loaded.
func (s Snapshot) ModelLoaded() bool { return s.Ready() }

// DataLoaded reports whether test rows have been loaded.
func (s Snapshot) DataLoaded() bool { return s.SampleCount > 0 }

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Status:       s.status,
		Err:          s.lastErr,
		SampleCount:  s.dataRows,
		Predictions:  len(s.predictions),
		ReadyAt:      s.readyAt,
		InitDuration: s.initTook,
	}
	if s.version != nil {
		snap.ModelName = s.version.Name
		snap.ModelVersion = s.version.Version
		snap.ModelRunID = s.version.RunID
		snap.ModelSource = s.version.Source
	}
	return snap
}

// Predictions returns a copy of every cached prediction in cache order.
func (s *State) Predictions() ([]pipeline.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusReady {
		return nil, ErrNotReady
	}
	return append([]pipeline.Prediction(nil), s.predictions...), nil
}

// RankedPrediction is a prediction with its 1-based rank.
type RankedPrediction struct {
	Rank            int     `json:"rank"`
	MovieID         int64   `json:"movie_id"`
	PredictedRating float64 `json:"predicted_rating"`
}

// Top returns the n highest predictions. Ratings are rounded to two
// decimals and ties keep cache order.
func (s *State) Top(n int) ([]RankedPrediction, error) {
	preds, err := s.Predictions()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].PredictedRating > preds[j].PredictedRating
	})
	if n < len(preds) {
		preds = preds[:n]
	}
	out := make([]RankedPrediction, len(preds))
	for i, p := range preds {
		out[i] = RankedPrediction{
			Rank:            i + 1,
			MovieID:         p.MovieID,
			PredictedRating: Round2(p.PredictedRating),
		}
	}
	return out, nil
}

// Round2 rounds v to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Bucket is one histogram bin over [Low, High).
type Bucket struct {
	Label string
	Low   float64
	High  float64
}

// RatingBuckets are the histogram bins of Stats. The last bin is closed.
var RatingBuckets = []Bucket{
	{"0-5", math.Inf(-1), 5},
	{"5-6", 5, 6},
	{"6-7", 6, 7},
	{"7-8", 7, 8},
	{"8-9", 8, 9},
	{"9-10", 9, math.Inf(1)},
}

// Stats summarizes the cached predictions.
type Stats struct {
	TotalMovies   int            `json:"total_movies"`
	AverageRating float64        `json:"average_rating"`
	MaxRating     float64        `json:"max_rating"`
	MinRating     float64        `json:"min_rating"`
	StdRating     float64        `json:"std_rating"`
	Distribution  map[string]int `json:"-"`
}

// Stats computes aggregate statistics and the rating histogram.
func (s *State) Stats() (*Stats, error) {
	preds, err := s.Predictions()
	if err != nil {
		return nil, err
	}
	st := &Stats{Distribution: make(map[string]int, len(RatingBuckets))}
	for _, b := range RatingBuckets {
		st.Distribution[b.Label] = 0
	}
	st.TotalMovies = len(preds)
	if len(preds) == 0 {
		return st, nil
	}

	sum := 0.0
	st.MinRating = math.Inf(1)
	st.MaxRating = math.Inf(-1)
	for _, p := range preds {
		r := p.PredictedRating
		sum += r
		st.MinRating = math.Min(st.MinRating, r)
		st.MaxRating = math.Max(st.MaxRating, r)
		st.Distribution[bucketOf(r)]++
	}
	mean := sum / float64(len(preds))

	ss := 0.0
	for _, p := range preds {
		d := p.PredictedRating - mean
		ss += d * d
	}
	st.AverageRating = Round2(mean)
	st.MaxRating = Round2(st.MaxRating)
	st.MinRating = Round2(st.MinRating)
	st.StdRating = Round2(math.Sqrt(ss / float64(len(preds))))
	return st, nil
}

func bucketOf(r float64) string {
	for _, b := range RatingBuckets {
		if r >= b.Low && r < b.High {
			return b.Label
		}
	}
	return RatingBuckets[len(RatingBuckets)-1].Label
}
