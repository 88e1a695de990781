// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"math"
	"sort"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

// Column suffixes of transformed features.
const (
	ScaledSuffix  = "_scaled"
	EncodedSuffix = "_encoded"
)

// identifierColumns are never scaled.
var identifierColumns = map[string]bool{"id": true, "content_id": true}

// Scaler standardizes one column: (x - Mean) / Std.
type Scaler struct {
	Column string
	Mean   float64
	Std    float64
}

// Encoder maps one categorical column to the index of its value in Classes.
type Encoder struct {
	Column  string
	Classes []string
}

// Code returns the class index of v, or -1 for a value not seen in fitting.
func (e *Encoder) Code(v string) int {
	i := sort.SearchStrings(e.Classes, v)
	if i < len(e.Classes) && e.Classes[i] == v {
		return i
	}
	return -1
}

// ScaleEncode fits a scaler on every non-identifier numeric column with
// more than two distinct values and a label encoder on every categorical
// column. The result holds untouched numeric columns, then the scaled
// columns, then the encoded columns, then the target. Boolean and time
// columns are dropped. Fitting is deterministic for identical input.
func ScaleEncode(f *Frame, target string) (*Frame, *Transform, error) {
	tc, ok := f.Column(target)
	if !ok {
		return nil, nil, apperrors.Validation("target", "target column missing", target)
	}
	if tc.Kind != Numeric {
		return nil, nil, apperrors.Validation("target", "target column "+target+" is not numeric")
	}

	t := &Transform{Target: target}
	for _, c := range f.Columns() {
		if c.Name == target {
			continue
		}
		switch c.Kind {
		case Numeric:
			if identifierColumns[c.Name] || c.Unique() <= 2 {
				t.PassThrough = append(t.PassThrough, c.Name)
				continue
			}
			mu := mean(c.Num)
			sd := popStd(c.Num, mu)
			if sd == 0 || math.IsNaN(sd) {
				sd = 1
			}
			t.Scalers = append(t.Scalers, Scaler{Column: c.Name, Mean: mu, Std: sd})
		case Categorical:
			t.Encoders = append(t.Encoders, Encoder{Column: c.Name, Classes: classes(c)})
		}
	}
	t.FeatureNames = t.featureNames()

	out, err := t.encode(f)
	if err != nil {
		return nil, nil, err
	}
	return out, t, nil
}

func classes(c *Column) []string {
	seen := make(map[string]struct{})
	for i := range c.Str {
		seen[c.Text(i)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
