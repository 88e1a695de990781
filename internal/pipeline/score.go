// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package pipeline

import (
	"fmt"
	"math"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/gbm"
)

// Prediction is one scored movie.
type Prediction struct {
	MovieID         int64   `json:"movie_id"`
	PredictedRating float64 `json:"predicted_rating"`
}

// Score predicts every row of f using the named feature columns. Rows keep
// their order. f must have a numeric id column.
func Score(model *gbm.Model, f *features.Frame, names []string) ([]Prediction, error) {
	ids, ok := f.Column("id")
	if !ok || ids.Kind != features.Numeric {
		return nil, apperrors.Validation("id", "numeric id column is required for scoring", "id")
	}
	x, err := features.SelectFeatures(f, names)
	if err != nil {
		return nil, err
	}
	preds, err := model.PredictBatch(x)
	if err != nil {
		return nil, apperrors.Validation("features", err.Error())
	}

	out := make([]Prediction, len(preds))
	for i, p := range preds {
		id := ids.Num[i]
		if math.IsNaN(id) {
			return nil, apperrors.DataQuality("score", fmt.Sprintf("row %d has no movie id", i))
		}
		out[i] = Prediction{MovieID: int64(id), PredictedRating: p}
	}
	return out, nil
}

// targetValues returns the numeric target column.
func targetValues(f *features.Frame, target string) ([]float64, error) {
	c, ok := f.Column(target)
	if !ok || c.Kind != features.Numeric {
		return nil, apperrors.Validation("target", fmt.Sprintf("numeric target column %q not found", target), target)
	}
	if n := c.MissingCount(); n > 0 {
		return nil, apperrors.DataQuality("target", fmt.Sprintf("%d rows have no %s", n, target))
	}
	return c.Num, nil
}
