// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package gbm implements gradient-boosted regression trees for the rating
// model.
//
// Trees are grown depth-first with exact greedy split finding on
// second-order gradient statistics of the squared error loss:
//
//	gain = 1/2 * [GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)] - γ
//
// Missing (NaN) feature values are routed to the left child both during
// training and prediction. A fitted Model is immutable and safe for
// concurrent Predict calls; its exported fields gob-encode directly.
package gbm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Params are the boosting hyperparameters.
type Params struct {
	MaxDepth       int
	Eta            float64
	NumRounds      int
	MinChildWeight float64
	Lambda         float64
	Gamma          float64
	Subsample      float64
	Seed           int64
}

// DefaultParams returns max_depth 6, eta 0.3 and 100 rounds.
func DefaultParams() Params {
	return Params{
		MaxDepth:       6,
		Eta:            0.3,
		NumRounds:      100,
		MinChildWeight: 1,
		Lambda:         1,
		Gamma:          0,
		Subsample:      1,
		Seed:           42,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be >= 1, got %d", p.MaxDepth)
	case p.Eta <= 0 || p.Eta > 1:
		return fmt.Errorf("eta must be in (0, 1], got %v", p.Eta)
	case p.NumRounds < 1:
		return fmt.Errorf("n_estimators must be >= 1, got %d", p.NumRounds)
	case p.MinChildWeight < 0:
		return fmt.Errorf("min_child_weight must not be negative, got %v", p.MinChildWeight)
	case p.Lambda < 0:
		return fmt.Errorf("lambda must not be negative, got %v", p.Lambda)
	case p.Gamma < 0:
		return fmt.Errorf("gamma must not be negative, got %v", p.Gamma)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	}
	return nil
}

// Model is a fitted ensemble.
type Model struct {
	Params       Params
	BaseScore    float64
	Trees        []Tree
	FeatureNames []string
	// Gain is the total split gain contributed by each feature.
	Gain      []float64
	TrainRMSE float64
	TrainedAt time.Time
}

// ErrEmptyTrainingSet is returned by Fit when there are no rows.
var ErrEmptyTrainingSet = errors.New("gbm: empty training set")

// Fit trains a model on the row-major matrix x and targets y.
// featureNames may be nil.
func Fit(x [][]float64, y []float64, featureNames []string, params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("gbm: %d rows but %d targets", len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("gbm: row %d has %d features, want %d", i, len(row), width)
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("gbm: target %d is not finite", i)
		}
	}
	if featureNames != nil && len(featureNames) != width {
		return nil, fmt.Errorf("gbm: %d feature names for %d features", len(featureNames), width)
	}

	n := len(y)
	m := &Model{
		Params:       params,
		BaseScore:    meanOf(y),
		Trees:        make([]Tree, 0, params.NumRounds),
		FeatureNames: featureNames,
		Gain:         make([]float64, width),
		TrainedAt:    time.Now().UTC(),
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.BaseScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
		hess[i] = 1
	}

	rng := rand.New(rand.NewSource(params.Seed)) //nolint:gosec // reproducible row sampling
	b := &builder{x: x, grad: grad, hess: hess, params: params, gain: m.Gain}

	for round := 0; round < params.NumRounds; round++ {
		for i := range grad {
			grad[i] = pred[i] - y[i]
		}
		rows := all
		if params.Subsample < 1 {
			rows = subsample(rng, n, params.Subsample)
		}
		tree := b.build(rows)
		m.Trees = append(m.Trees, *tree)
		for i := range pred {
			pred[i] += tree.Predict(x[i])
		}
	}

	m.TrainRMSE = Evaluate(y, pred).RMSE
	return m, nil
}

func subsample(rng *rand.Rand, n int, rate float64) []int {
	k := int(math.Max(1, math.Round(rate*float64(n))))
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// Predict scores one row.
func (m *Model) Predict(x []float64) float64 {
	out := m.BaseScore
	for i := range m.Trees {
		out += m.Trees[i].Predict(x)
	}
	return out
}

// PredictBatch scores every row of x.
func (m *Model) PredictBatch(x [][]float64) ([]float64, error) {
	width := m.NumFeatures()
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("gbm: row %d has %d features, model expects %d", i, len(row), width)
		}
		out[i] = m.Predict(row)
	}
	return out, nil
}

// NumFeatures returns the input width the model was trained on.
func (m *Model) NumFeatures() int { return len(m.Gain) }

// FeatureImportance returns each used feature's share of the total gain,
// keyed by feature name (or "f<index>" when names are unknown).
func (m *Model) FeatureImportance() map[string]float64 {
	total := 0.0
	for _, g := range m.Gain {
		total += g
	}
	out := make(map[string]float64)
	if total == 0 {
		return out
	}
	for i, g := range m.Gain {
		if g == 0 {
			continue
		}
		name := fmt.Sprintf("f%d", i)
		if i < len(m.FeatureNames) {
			name = m.FeatureNames[i]
		}
		out[name] = g / total
	}
	return out
}

func meanOf(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
