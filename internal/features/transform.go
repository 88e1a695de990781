// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"fmt"
	"time"

	"github.com/tomtom215/cinescore/internal/storage"
)

// Transform is everything fitted by a preprocessing run. Applying it to
// fresh raw movies reproduces the training feature matrix layout without
// refitting anything.
type Transform struct {
	Target          string
	ReferenceYear   int
	PopularityEdges []float64
	Imputation      Imputation
	PassThrough     []string
	Scalers         []Scaler
	Encoders        []Encoder
	FeatureNames    []string
	Rows            int
	CreatedAt       time.Time
}

func (t *Transform) featureNames() []string {
	names := make([]string, 0, len(t.PassThrough)+len(t.Scalers)+len(t.Encoders))
	names = append(names, t.PassThrough...)
	for _, s := range t.Scalers {
		names = append(names, s.Column+ScaledSuffix)
	}
	for _, e := range t.Encoders {
		names = append(names, e.Column+EncodedSuffix)
	}
	return names
}

// encode lays out f as feature columns followed by the target when f has
// one. Source columns absent from f are filled with their imputation value.
func (t *Transform) encode(f *Frame) (*Frame, error) {
	n := f.Len()
	out := NewFrame(n)

	for _, name := range t.PassThrough {
		out.Set(NewNumeric(name, t.numericSource(f, name)))
	}

	for _, s := range t.Scalers {
		src := t.numericSource(f, s.Column)
		vals := make([]float64, n)
		for i, v := range src {
			vals[i] = (v - s.Mean) / s.Std
		}
		out.Set(NewNumeric(s.Column+ScaledSuffix, vals))
	}

	for i := range t.Encoders {
		e := &t.Encoders[i]
		codes := make([]float64, n)
		c, ok := f.Column(e.Column)
		for r := 0; r < n; r++ {
			var v string
			switch {
			case !ok || c.IsMissing(r):
				v = t.categoricalFill(e.Column)
			default:
				v = c.Text(r)
			}
			codes[r] = float64(e.Code(v))
		}
		out.Set(NewNumeric(e.Column+EncodedSuffix, codes))
	}

	if c, ok := f.Column(t.Target); ok {
		out.Set(NewNumeric(t.Target, toNumeric(c).Num))
	}

	if got := out.Width(); got < len(t.FeatureNames) {
		return nil, fmt.Errorf("encode: produced %d feature columns, want %d", got, len(t.FeatureNames))
	}
	return out, nil
}

func (t *Transform) numericSource(f *Frame, name string) []float64 {
	c, ok := f.Column(name)
	if !ok {
		fill := t.Imputation.Numeric[name]
		vals := make([]float64, f.Len())
		for i := range vals {
			vals[i] = fill
		}
		return vals
	}
	return toNumeric(c).Num
}

func (t *Transform) categoricalFill(name string) string {
	if v, ok := t.Imputation.Categorical[name]; ok {
		return v
	}
	return UnknownCategory
}

// Apply transforms fresh raw movies with the fitted values. Rows are
// deduplicated and rows without the required fields are dropped, but the
// vote filters are not applied so unrated movies can be scored. Unknown
// categories encode to -1.
func (t *Transform) Apply(raw *Frame) (*Frame, error) {
	cleaned, err := clean(raw, false)
	if err != nil {
		return nil, err
	}
	edges := t.PopularityEdges
	if edges == nil {
		edges = []float64{}
	}
	engineered, _, err := Engineer(cleaned, EngineerOptions{
		ReferenceYear:   t.ReferenceYear,
		PopularityEdges: edges,
	})
	if err != nil {
		return nil, err
	}
	return t.encode(t.Imputation.Apply(engineered))
}

// VerifyManifest checks that names is exactly the fitted feature list.
func (t *Transform) VerifyManifest(names []string) error {
	return verifyNames("feature_names", t.FeatureNames, names)
}

// Save writes the transform as a checksummed gob+gzip artifact.
func (t *Transform) Save(path string) error {
	_, err := storage.WriteFile(path, t, storage.ArtifactMetadata{
		Name:      "feature_transform",
		Kind:      "transform",
		CreatedAt: t.CreatedAt,
		Rows:      t.Rows,
		Features:  len(t.FeatureNames),
	})
	if err != nil {
		return fmt.Errorf("save transform: %w", err)
	}
	return nil
}

// LoadTransform reads a transform written by Save.
func LoadTransform(path string) (*Transform, error) {
	var t Transform
	if _, err := storage.ReadFile(path, &t); err != nil {
		return nil, fmt.Errorf("load transform: %w", err)
	}
	if t.Imputation.Numeric == nil {
		t.Imputation.Numeric = map[string]float64{}
	}
	if t.Imputation.Categorical == nil {
		t.Imputation.Categorical = map[string]string{}
	}
	return &t, nil
}
