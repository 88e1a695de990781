// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

func TestImpute(t *testing.T) {
	nan := math.NaN()
	f := NewFrame(4)
	f.Set(NewNumeric("release_year", []float64{2000, nan, 2010, 2020}))
	f.Set(NewNumeric("popularity", []float64{1, nan, 3, nan}))
	f.Set(NewNumeric("all_missing", []float64{nan, nan, nan, nan}))
	f.Set(NewCategorical("popularity_tier", []string{"Low", "High", "", ""}, []bool{true, true, false, false}))
	f.Set(NewCategorical("rating_tier", []string{"", "", "", ""}, []bool{false, false, false, false}))
	f.Set(NewCategorical("overview", []string{"a", "", "b", ""}, []bool{true, false, true, false}))
	f.Set(NewBoolean("adult", []bool{true, false, false, false}, []bool{true, false, true, true}))

	out, im := Impute(f)

	if got := num(t, out, "release_year", 1); got != 2010 {
		t.Errorf("release_year fill = %v, want median 2010", got)
	}
	if got := num(t, out, "popularity", 3); got != 2 {
		t.Errorf("popularity fill = %v, want mean 2", got)
	}
	if got := num(t, out, "all_missing", 0); got != 0 {
		t.Errorf("all-missing fill = %v, want 0", got)
	}
	if got, _ := str(t, out, "popularity_tier", 2); got != "High" {
		t.Errorf("popularity_tier fill = %q, want High (tie resolves to smallest)", got)
	}
	if got, _ := str(t, out, "rating_tier", 0); got != UnknownCategory {
		t.Errorf("rating_tier fill = %q, want Unknown", got)
	}
	if got, _ := str(t, out, "overview", 1); got != UnknownCategory {
		t.Errorf("overview fill = %q, want Unknown", got)
	}

	adult, _ := out.Column("adult")
	if !adult.IsMissing(1) {
		t.Error("boolean columns should not be imputed")
	}

	orig, _ := f.Column("popularity")
	if !math.IsNaN(orig.Num[1]) {
		t.Error("Impute must not modify its input")
	}

	if im.Numeric["release_year"] != 2010 || im.Categorical["overview"] != UnknownCategory {
		t.Errorf("imputation = %+v", im)
	}
}

func scaleFixture() *Frame {
	f := NewFrame(4)
	f.Set(NewNumeric("id", []float64{11, 12, 13, 14}))
	f.Set(NewNumeric("flag", []float64{0, 1, 0, 1}))
	f.Set(NewNumeric("popularity", []float64{1, 2, 3, 4}))
	f.Set(NewCategorical("title", []string{"b", "a", "c", "a"}, nil))
	f.Set(NewBoolean("adult", []bool{false, false, true, false}, nil))
	f.Set(NewTime("release_date", make([]time.Time, 4), nil))
	f.Set(NewNumeric("vote_average", []float64{5, 6, 7, 8}))
	return f
}

func TestScaleEncodeLayout(t *testing.T) {
	out, tr, err := ScaleEncode(scaleFixture(), "vote_average")
	if err != nil {
		t.Fatalf("ScaleEncode() error = %v", err)
	}

	want := []string{"id", "flag", "popularity_scaled", "title_encoded", "vote_average"}
	got := out.Names()
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}

	if len(tr.FeatureNames) != len(want)-1 {
		t.Errorf("FeatureNames = %v", tr.FeatureNames)
	}

	scaled, _ := out.Column("popularity_scaled")
	mu := mean(scaled.Num)
	sd := popStd(scaled.Num, mu)
	if math.Abs(mu) > 1e-12 || math.Abs(sd-1) > 1e-12 {
		t.Errorf("scaled mean = %v std = %v, want 0 and 1", mu, sd)
	}
	if want := (1 - 2.5) / math.Sqrt(1.25); math.Abs(scaled.Num[0]-want) > 1e-12 {
		t.Errorf("scaled[0] = %v, want %v", scaled.Num[0], want)
	}

	codes, _ := out.Column("title_encoded")
	for i, w := range []float64{1, 0, 2, 0} {
		if codes.Num[i] != w {
			t.Errorf("title_encoded[%d] = %v, want %v", i, codes.Num[i], w)
		}
	}
	if len(tr.Encoders) != 1 || tr.Encoders[0].Classes[0] != "a" {
		t.Errorf("encoders = %+v", tr.Encoders)
	}
}

func TestScaleEncodeDeterministic(t *testing.T) {
	f := scaleFixture()
	a, _, err := ScaleEncode(f, "vote_average")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := ScaleEncode(f, "vote_average")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range a.Columns() {
		other, ok := b.Column(c.Name)
		if !ok {
			t.Fatalf("column %s missing from second run", c.Name)
		}
		for i := range c.Num {
			if c.Num[i] != other.Num[i] {
				t.Errorf("%s[%d] differs: %v vs %v", c.Name, i, c.Num[i], other.Num[i])
			}
		}
	}
}

func TestScaleEncodeMissingTarget(t *testing.T) {
	if _, _, err := ScaleEncode(scaleFixture(), "revenue"); !apperrors.IsValidation(err) {
		t.Errorf("ScaleEncode() error = %v, want ValidationError", err)
	}
}

func TestEncoderCode(t *testing.T) {
	e := Encoder{Column: "lang", Classes: []string{"en", "ko"}}
	if got := e.Code("ko"); got != 1 {
		t.Errorf("Code(ko) = %d, want 1", got)
	}
	if got := e.Code("xx"); got != -1 {
		t.Errorf("Code(xx) = %d, want -1", got)
	}
}

func TestSplitTimeBasedBoundary(t *testing.T) {
	f := NewFrame(6)
	f.Set(NewNumeric("x", []float64{1, 2, 3, 4, 5, 6}))
	f.Set(NewNumeric("vote_average", []float64{5, 6, 7, 8, 9, 7}))
	years := []float64{2001, 2002, 2003, 2004, 2005, 2006}

	res, err := Split(f, "vote_average", SplitOptions{Years: years, TestSize: 0.2})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if !res.TimeBased {
		t.Error("expected a time-based split")
	}
	// 80th percentile of six years lands exactly on 2005, which goes to train.
	if res.Threshold != 2005 {
		t.Errorf("Threshold = %v, want 2005", res.Threshold)
	}
	if res.Train.Len() != 5 || res.Test.Len() != 1 {
		t.Errorf("train/test = %d/%d, want 5/1", res.Train.Len(), res.Test.Len())
	}
	if len(res.Features) != 1 || res.Features[0] != "x" {
		t.Errorf("Features = %v", res.Features)
	}
}

func TestSplitRandom(t *testing.T) {
	n := 11
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	f := NewFrame(n)
	f.Set(NewNumeric("x", xs))
	f.Set(NewNumeric("vote_average", xs))

	a, err := Split(f, "vote_average", SplitOptions{TestSize: 0.2, Seed: 42})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if a.TimeBased {
		t.Error("expected a random split")
	}
	if a.Test.Len() != 3 || a.Train.Len() != 8 {
		t.Errorf("train/test = %d/%d, want 8/3", a.Train.Len(), a.Test.Len())
	}

	seen := make(map[float64]bool)
	for _, part := range []*Frame{a.Train, a.Test} {
		c, _ := part.Column("x")
		for _, v := range c.Num {
			if seen[v] {
				t.Errorf("row %v appears twice", v)
			}
			seen[v] = true
		}
	}
	if len(seen) != n {
		t.Errorf("split covers %d rows, want %d", len(seen), n)
	}

	b, _ := Split(f, "vote_average", SplitOptions{TestSize: 0.2, Seed: 42})
	ca, _ := a.Test.Column("x")
	cb, _ := b.Test.Column("x")
	for i := range ca.Num {
		if ca.Num[i] != cb.Num[i] {
			t.Fatal("same seed should give the same split")
		}
	}
}
