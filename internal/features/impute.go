// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"math"
	"sort"
)

// UnknownCategory fills missing categorical values.
const UnknownCategory = "Unknown"

var (
	medianColumns = map[string]bool{"release_year": true, "movie_age": true}
	modeColumns   = map[string]bool{"rating_tier": true, "popularity_tier": true}
)

// Imputation holds the fill value fitted for each column.
type Imputation struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// Impute fits fill values on f and returns a filled copy. Numeric columns
// use the mean (median for release_year and movie_age); the tier columns
// use their mode; other categoricals use "Unknown". Boolean and time
// columns are left as they are.
func Impute(f *Frame) (*Frame, *Imputation) {
	im := &Imputation{
		Numeric:     make(map[string]float64),
		Categorical: make(map[string]string),
	}
	for _, c := range f.Columns() {
		switch c.Kind {
		case Numeric:
			var v float64
			if medianColumns[c.Name] {
				v = quantile(c.Num, 0.5)
			} else {
				v = mean(c.Num)
			}
			if math.IsNaN(v) {
				v = 0
			}
			im.Numeric[c.Name] = v
		case Categorical:
			v := UnknownCategory
			if modeColumns[c.Name] {
				if m, ok := mode(c); ok {
					v = m
				}
			}
			im.Categorical[c.Name] = v
		}
	}
	return im.Apply(f), im
}

// Apply returns a copy of f with missing values filled. Numeric columns
// the imputation has never seen are filled with 0, categoricals with
// "Unknown".
func (im *Imputation) Apply(f *Frame) *Frame {
	out := f.Clone()
	for _, c := range out.Columns() {
		switch c.Kind {
		case Numeric:
			fill := im.Numeric[c.Name]
			for i, v := range c.Num {
				if math.IsNaN(v) {
					c.Num[i] = fill
				}
			}
		case Categorical:
			fill, ok := im.Categorical[c.Name]
			if !ok {
				fill = UnknownCategory
			}
			for i := range c.Str {
				if !c.Valid[i] {
					c.Str[i], c.Valid[i] = fill, true
				}
			}
		}
	}
	return out
}

// mode returns the most frequent value; ties go to the smallest value.
func mode(c *Column) (string, bool) {
	counts := make(map[string]int)
	for i, s := range c.Str {
		if c.Valid[i] {
			counts[s]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}
