// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

// Split defaults.
const (
	DefaultTestSize  = 0.2
	DefaultSplitSeed = 42
)

// SplitOptions controls Split.
type SplitOptions struct {
	// Years holds the unscaled release year per row. When set, rows with a
	// year at or below the (1 - TestSize) quantile go to train and the
	// rest to test. When nil, a seeded random split is used.
	Years []float64

	TestSize float64
	Seed     int64
}

// SplitResult is a train/test partition of a transformed frame.
type SplitResult struct {
	Train    *Frame
	Test     *Frame
	Features []string
	Target   string

	// TimeBased is true when the split used release years.
	TimeBased bool
	// Threshold is the year cut-off of a time-based split.
	Threshold float64
}

// Split partitions f into train and test sets. Features are every column
// except the target, in frame order.
func Split(f *Frame, target string, opts SplitOptions) (*SplitResult, error) {
	if !f.Has(target) {
		return nil, apperrors.Validation("target", "target column missing", target)
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		opts.TestSize = DefaultTestSize
	}

	res := &SplitResult{Target: target}
	for _, name := range f.Names() {
		if name != target {
			res.Features = append(res.Features, name)
		}
	}

	var trainRows, testRows []int
	if opts.Years != nil {
		if len(opts.Years) != f.Len() {
			return nil, fmt.Errorf("split: %d years for %d rows", len(opts.Years), f.Len())
		}
		res.TimeBased = true
		res.Threshold = quantile(opts.Years, 1-opts.TestSize)
		for i, y := range opts.Years {
			if y <= res.Threshold {
				trainRows = append(trainRows, i)
			} else {
				testRows = append(testRows, i)
			}
		}
	} else {
		n := f.Len()
		nTest := int(math.Ceil(opts.TestSize * float64(n)))
		perm := rand.New(rand.NewSource(opts.Seed)).Perm(n) //nolint:gosec // reproducible split, not security
		testRows, trainRows = perm[:nTest], perm[nTest:]
	}

	res.Train = f.Take(trainRows)
	res.Test = f.Take(testRows)
	return res, nil
}
