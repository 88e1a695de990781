// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package pipeline

import (
	"context"

	"github.com/tomtom215/cinescore/internal/features"
	"github.com/tomtom215/cinescore/internal/gbm"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/storage"
)

// PredictOptions selects the model and the rows to score. When Input is
// set, raw movies are read from it and transformed with TransformFile;
// otherwise the processed TestFile is scored against ManifestFile, which
// must list the same features as TransformFile.
type PredictOptions struct {
	ModelFile     string
	Input         string
	TestFile      string
	ManifestFile  string
	TransformFile string
}

// Predictor scores data offline with a locally stored model.
type Predictor struct {
	models *storage.Store
}

// NewPredictor creates a predictor over the local model store.
func NewPredictor(models *storage.Store) *Predictor {
	return &Predictor{models: models}
}

// Predict loads the model file and scores the selected rows.
func (p *Predictor) Predict(ctx context.Context, opts PredictOptions) ([]Prediction, error) {
	var model gbm.Model
	meta, err := p.models.LoadFile(ctx, opts.ModelFile, &model)
	if err != nil {
		return nil, err
	}
	log := logging.Ctx(ctx)
	log.Info().
		Str("model", opts.ModelFile).
		Str("run_id", meta.RunID).
		Int("trees", len(model.Trees)).
		Msg("Model loaded")

	frame, names, err := p.rows(opts)
	if err != nil {
		return nil, err
	}
	preds, err := Score(&model, frame, names)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rows", len(preds)).Msg("Prediction finished")
	return preds, nil
}

func (p *Predictor) rows(opts PredictOptions) (*features.Frame, []string, error) {
	transform, err := features.LoadTransform(opts.TransformFile)
	if err != nil {
		return nil, nil, err
	}

	if opts.Input != "" {
		raw, err := features.Load(opts.Input)
		if err != nil {
			return nil, nil, err
		}
		frame, err := transform.Apply(raw)
		if err != nil {
			return nil, nil, err
		}
		return frame, transform.FeatureNames, nil
	}

	frame, err := features.ReadCSV(opts.TestFile)
	if err != nil {
		return nil, nil, err
	}
	names, err := features.ReadManifest(opts.ManifestFile)
	if err != nil {
		return nil, nil, err
	}
	if err := transform.VerifyManifest(names); err != nil {
		return nil, nil, err
	}
	return frame, names, nil
}
