// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/logging"
)

// Load reads an ingested movie document into a frame. Both the
// {"movies": [...]} wrapper and a bare array are accepted.
func Load(path string) (*Frame, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("raw data file", path, err)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	logDiagnostics(f, path)
	return f, nil
}

// Parse builds a frame from JSON bytes. source names the input in errors.
func Parse(data []byte, source string) (*Frame, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.DataFormat(source, err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		movies, ok := v["movies"]
		if !ok {
			return nil, apperrors.DataFormat(source, errors.New(`object has no "movies" key`))
		}
		list, ok := movies.([]any)
		if !ok {
			return nil, apperrors.DataFormat(source, errors.New(`"movies" is not an array`))
		}
		items = list
	default:
		return nil, apperrors.DataFormat(source, errors.New("expected an array or an object"))
	}

	if len(items) == 0 {
		return nil, apperrors.DataFormat(source, errors.New("no records"))
	}

	records := make([]map[string]any, len(items))
	keys := make(map[string]struct{})
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, apperrors.DataFormat(source, fmt.Errorf("record %d is not an object", i))
		}
		records[i] = rec
		for k := range rec {
			keys[k] = struct{}{}
		}
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	f := NewFrame(len(records))
	for _, name := range names {
		values := make([]any, len(records))
		for i, rec := range records {
			values[i] = rec[name]
		}
		f.Set(inferColumn(name, values))
	}
	return f, nil
}

// inferColumn picks the narrowest kind that holds every non-null value.
func inferColumn(name string, values []any) *Column {
	allNum, allBool, seen := true, true, false
	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		if _, ok := v.(float64); !ok {
			allNum = false
		}
		if _, ok := v.(bool); !ok {
			allBool = false
		}
	}

	n := len(values)
	switch {
	case seen && allNum:
		out := nanSlice(n)
		for i, v := range values {
			if x, ok := v.(float64); ok {
				out[i] = x
			}
		}
		return NewNumeric(name, out)
	case seen && allBool:
		out := make([]bool, n)
		valid := make([]bool, n)
		for i, v := range values {
			if b, ok := v.(bool); ok {
				out[i], valid[i] = b, true
			}
		}
		return NewBoolean(name, out, valid)
	default:
		out := make([]string, n)
		valid := make([]bool, n)
		for i, v := range values {
			if v == nil {
				continue
			}
			out[i], valid[i] = renderValue(v), true
		}
		return NewCategorical(name, out, valid)
	}
}

func renderValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func logDiagnostics(f *Frame, path string) {
	logger := logging.WithComponent("features")
	logger.Info().
		Str("path", path).
		Int("rows", f.Len()).
		Int("columns", f.Width()).
		Msg("Loaded raw movies")

	if e := logger.Debug(); e.Enabled() {
		nulls := make(map[string]int)
		for _, c := range f.Columns() {
			if n := c.MissingCount(); n > 0 {
				nulls[c.Name] = n
			}
		}
		e.Strs("column_names", f.Names()).
			Interface("null_counts", nulls).
			Msg("Raw column summary")
	}

	c, ok := f.Column("vote_average")
	if !ok || c.Kind != Numeric {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range c.Num {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return
	}
	logger.Info().
		Float64("min", lo).
		Float64("max", hi).
		Float64("mean", mean(c.Num)).
		Msg("vote_average range")
}

// looksMissing treats blank strings as missing when coercing text to numbers.
func looksMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null")
}
