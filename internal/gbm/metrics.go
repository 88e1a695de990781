// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package gbm

import "math"

// Metrics are regression error measures.
type Metrics struct {
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
	MAE  float64 `json:"mae"`
}

// Map returns the metrics keyed by their tracking names.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"mse":  m.MSE,
		"rmse": m.RMSE,
		"r2":   m.R2,
		"mae":  m.MAE,
	}
}

// Evaluate compares predictions with targets. When the targets have no
// variance R2 is 1 for exact predictions and 0 otherwise.
func Evaluate(yTrue, yPred []float64) Metrics {
	n := len(yTrue)
	if n == 0 || n != len(yPred) {
		return Metrics{MSE: math.NaN(), RMSE: math.NaN(), R2: math.NaN(), MAE: math.NaN()}
	}

	mu := meanOf(yTrue)
	var sse, sae, sst float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sse += d * d
		sae += math.Abs(d)
		t := yTrue[i] - mu
		sst += t * t
	}

	m := Metrics{
		MSE: sse / float64(n),
		MAE: sae / float64(n),
	}
	m.RMSE = math.Sqrt(m.MSE)
	switch {
	case sst > 0:
		m.R2 = 1 - sse/sst
	case sse == 0:
		m.R2 = 1
	default:
		m.R2 = 0
	}
	return m
}
