// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package features turns ingested movie documents into model-ready tables.
//
// The preprocessing pipeline runs six steps in order:
//
//	Load -> Clean -> Engineer -> Impute -> ScaleEncode -> Split
//
// Any step error aborts the run. Everything fitted along the way (fill
// values, scaler statistics, encoder classes, popularity tier edges) is
// collected into a Transform that is saved beside the output CSVs and used
// later to transform fresh movies identically.
package features

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/metrics"
)

// Options configures a Pipeline.
type Options struct {
	Target        string
	ReferenceYear int
	TestSize      float64
	Seed          int64
}

// DefaultOptions returns the standard preprocessing options.
func DefaultOptions() Options {
	return Options{
		Target:        "vote_average",
		ReferenceYear: DefaultReferenceYear,
		TestSize:      DefaultTestSize,
		Seed:          DefaultSplitSeed,
	}
}

// Pipeline runs the preprocessing steps.
type Pipeline struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// NewPipeline creates a pipeline. Zero option fields take their defaults.
func NewPipeline(opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.Target == "" {
		opts.Target = def.Target
	}
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = def.ReferenceYear
	}
	if opts.TestSize == 0 {
		opts.TestSize = def.TestSize
	}
	return &Pipeline{
		opts:   opts,
		logger: logging.WithComponent("features"),
		now:    time.Now,
	}
}

// Result is the output of a pipeline run.
type Result struct {
	// Full is the transformed dataset before splitting.
	Full      *Frame
	Split     *SplitResult
	Transform *Transform
}

// Run loads input and runs every step.
func (p *Pipeline) Run(ctx context.Context, input string) (*Result, error) {
	var raw *Frame
	err := p.stage("load", func() (int, error) {
		var err error
		raw, err = Load(input)
		if err != nil {
			return 0, err
		}
		return raw.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	return p.RunFrame(ctx, raw)
}

// RunFrame runs the steps after Load on an in-memory frame.
func (p *Pipeline) RunFrame(ctx context.Context, raw *Frame) (*Result, error) {
	var (
		cleaned, engineered, imputed, encoded *Frame
		edges                                 []float64
		imputation                            *Imputation
		transform                             *Transform
		split                                 *SplitResult
	)

	steps := []struct {
		name string
		run  func() (int, error)
	}{
		{"clean", func() (int, error) {
			var err error
			cleaned, err = Clean(raw)
			if err != nil {
				return 0, err
			}
			return cleaned.Len(), nil
		}},
		{"engineer", func() (int, error) {
			var err error
			engineered, edges, err = Engineer(cleaned, EngineerOptions{ReferenceYear: p.opts.ReferenceYear})
			if err != nil {
				return 0, err
			}
			return engineered.Len(), nil
		}},
		{"impute", func() (int, error) {
			imputed, imputation = Impute(engineered)
			return imputed.Len(), nil
		}},
		{"scale_encode", func() (int, error) {
			var err error
			encoded, transform, err = ScaleEncode(imputed, p.opts.Target)
			if err != nil {
				return 0, err
			}
			return encoded.Len(), nil
		}},
		{"split", func() (int, error) {
			opts := SplitOptions{TestSize: p.opts.TestSize, Seed: p.opts.Seed}
			if c, ok := imputed.Column("release_year"); ok && c.Kind == Numeric {
				opts.Years = c.Num
			}
			var err error
			split, err = Split(encoded, p.opts.Target, opts)
			if err != nil {
				return 0, err
			}
			return split.Train.Len(), nil
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("preprocessing interrupted before %s: %w", s.name, err)
		}
		if err := p.stage(s.name, s.run); err != nil {
			return nil, err
		}
	}

	transform.ReferenceYear = p.opts.ReferenceYear
	transform.PopularityEdges = edges
	transform.Imputation = *imputation
	transform.Rows = encoded.Len()
	transform.CreatedAt = p.now().UTC()

	if split.Test.Len() == 0 {
		p.logger.Warn().Float64("threshold", split.Threshold).Msg("Test split is empty")
	}
	p.logger.Info().
		Int("rows", encoded.Len()).
		Int("features", len(split.Features)).
		Int("train_rows", split.Train.Len()).
		Int("test_rows", split.Test.Len()).
		Bool("time_based", split.TimeBased).
		Float64("threshold", split.Threshold).
		Msg("Preprocessing complete")

	return &Result{Full: encoded, Split: split, Transform: transform}, nil
}

func (p *Pipeline) stage(name string, run func() (int, error)) error {
	start := time.Now()
	rows, err := run()
	metrics.RecordPipelineStage(name, rows, time.Since(start), err)
	if err != nil {
		p.logger.Error().Err(err).Str("stage", name).Msg("Preprocessing step failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug().Str("stage", name).Int("rows", rows).Dur("duration", time.Since(start)).Msg("Step finished")
	return nil
}

// OutputFiles names the files written by Result.Save.
type OutputFiles struct {
	Full         string
	Train        string
	Test         string
	FeatureNames string
	Transform    string
}

// DefaultOutputFiles returns the standard output file names.
func DefaultOutputFiles() OutputFiles {
	return OutputFiles{
		Full:         "tmdb_processed_full.csv",
		Train:        "tmdb_train.csv",
		Test:         "tmdb_test.csv",
		FeatureNames: "feature_names.json",
		Transform:    "feature_transform.gob.gz",
	}
}

// Save writes the full, train and test CSVs, the feature manifest and the
// transform into dir.
func (r *Result) Save(dir string, files OutputFiles) error {
	writes := []struct {
		name string
		f    *Frame
	}{
		{files.Full, r.Full},
		{files.Train, r.Split.Train},
		{files.Test, r.Split.Test},
	}
	for _, w := range writes {
		if err := WriteCSV(filepath.Join(dir, w.name), w.f); err != nil {
			return err
		}
	}
	if err := WriteManifest(filepath.Join(dir, files.FeatureNames), r.Split.Features); err != nil {
		return err
	}
	return r.Transform.Save(filepath.Join(dir, files.Transform))
}
