// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

// RequiredColumns must be present in every raw frame.
var RequiredColumns = []string{"id", "vote_average", "vote_count", "popularity"}

// Rating filter bounds.
const (
	MinVoteCount  = 10
	MaxVoteRating = 10
)

// Clean deduplicates by id, coerces the required numeric columns and keeps
// only rows with 0 < vote_average <= 10 and vote_count >= 10.
func Clean(f *Frame) (*Frame, error) {
	return clean(f, true)
}

// clean with filterVotes false keeps unrated movies; it is used when
// transforming fresh data for prediction.
func clean(f *Frame, filterVotes bool) (*Frame, error) {
	var missing []string
	for _, name := range RequiredColumns {
		if !f.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation("columns", "required columns missing", missing...)
	}

	out := dedupe(f, "id")
	for _, name := range RequiredColumns {
		c, _ := out.Column(name)
		out.Set(toNumeric(c))
	}

	keep := make([]bool, out.Len())
	va, _ := out.Column("vote_average")
	vc, _ := out.Column("vote_count")
	for i := range keep {
		ok := true
		for _, name := range RequiredColumns {
			c, _ := out.Column(name)
			if c.IsMissing(i) {
				ok = false
				break
			}
		}
		if ok && filterVotes {
			ok = va.Num[i] > 0 && va.Num[i] <= MaxVoteRating && vc.Num[i] >= MinVoteCount
		}
		keep[i] = ok
	}

	out = out.Filter(keep)
	if out.Len() == 0 {
		return nil, apperrors.DataQuality("clean", fmt.Sprintf("no rows left after filtering %d records", f.Len()))
	}
	return out, nil
}

// dedupe keeps the first row for each distinct value of key.
func dedupe(f *Frame, key string) *Frame {
	c, _ := f.Column(key)
	seen := make(map[string]struct{}, f.Len())
	rows := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		k := "\x00missing"
		if !c.IsMissing(i) {
			k = c.Text(i)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, i)
	}
	return f.Take(rows)
}

// toNumeric converts c to a numeric column; unparseable values become NaN.
func toNumeric(c *Column) *Column {
	switch c.Kind {
	case Numeric:
		return c
	case Boolean:
		out := nanSlice(c.Len())
		for i, b := range c.Bool {
			if !c.Valid[i] {
				continue
			}
			if b {
				out[i] = 1
			} else {
				out[i] = 0
			}
		}
		return NewNumeric(c.Name, out)
	case Categorical:
		out := nanSlice(c.Len())
		for i, s := range c.Str {
			if !c.Valid[i] || looksMissing(s) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsInf(v, 0) {
				out[i] = v
			}
		}
		return NewNumeric(c.Name, out)
	default:
		return NewNumeric(c.Name, nanSlice(c.Len()))
	}
}
