// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package features

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

// WriteCSV writes f with a header row. Missing values are empty cells.
func WriteCSV(path string, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil { //nolint:gosec // output directory
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(file)
	if err := encodeCSV(bw, f); err != nil {
		_ = file.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = file.Close() //nolint:errcheck // flush error takes precedence
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return file.Close()
}

func encodeCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return err
	}
	cols := f.Columns()
	record := make([]string, len(cols))
	for i := 0; i < f.Len(); i++ {
		for j, c := range cols {
			record[j] = c.Text(i)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a CSV written by WriteCSV. Columns whose cells all parse as
// numbers (or are empty) become numeric; anything else is categorical.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("data file", path, err)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }() //nolint:errcheck // read-only file

	rows, err := csv.NewReader(bufio.NewReader(file)).ReadAll()
	if err != nil {
		return nil, apperrors.DataFormat(path, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.DataFormat(path, errors.New("missing header row"))
	}

	header, body := rows[0], rows[1:]
	f := NewFrame(len(body))
	for j, name := range header {
		cells := make([]string, len(body))
		for i, row := range body {
			cells[i] = row[j]
		}
		f.Set(parseCells(name, cells))
	}
	return f, nil
}

func parseCells(name string, cells []string) *Column {
	nums := nanSlice(len(cells))
	for i, s := range cells {
		if looksMissing(s) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			valid := make([]bool, len(cells))
			for k, cell := range cells {
				valid[k] = cell != ""
			}
			return NewCategorical(name, cells, valid)
		}
		nums[i] = v
	}
	return NewNumeric(name, nums)
}

// WriteManifest writes the feature names as an indented JSON array.
func WriteManifest(path string, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads a feature name list written by WriteManifest.
func ReadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("feature manifest", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, apperrors.DataFormat(path, err)
	}
	return names, nil
}

// SelectFeatures returns the feature matrix for names, failing with a
// ValidationError listing every name f lacks.
func SelectFeatures(f *Frame, names []string) ([][]float64, error) {
	m, missing := f.NumericMatrix(names)
	if len(missing) > 0 {
		return nil, apperrors.Validation("features", "feature columns missing from data", missing...)
	}
	return m, nil
}

func verifyNames(field string, want, got []string) error {
	if len(want) != len(got) {
		return apperrors.Validation(field, fmt.Sprintf("expected %d features, got %d", len(want), len(got)))
	}
	for i := range want {
		if want[i] != got[i] {
			return apperrors.Validation(field, fmt.Sprintf("feature %d is %q, expected %q", i, got[i], want[i]))
		}
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
