// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/logging"
)

// MovieWriter persists a named crawl result.
type MovieWriter interface {
	Write(ctx context.Context, dataset string, movies []Movie) error
	Close() error
}

// JSONFileWriter writes `{dir}/{dataset}.json` as an indented
// {"movies": [...]} document.
type JSONFileWriter struct {
	dir      string
	withMeta bool
	now      func() time.Time
}

// NewJSONFileWriter writes into dir, creating it on first write.
func NewJSONFileWriter(dir string) *JSONFileWriter {
	return &JSONFileWriter{dir: dir, now: time.Now}
}

// WithMetadata adds count, crawled_date and data_type to the document.
func (w *JSONFileWriter) WithMetadata() *JSONFileWriter {
	w.withMeta = true
	return w
}

// Path returns the file a dataset is written to.
func (w *JSONFileWriter) Path(dataset string) string {
	return filepath.Join(w.dir, dataset+".json")
}

// Write replaces the dataset file atomically.
func (w *JSONFileWriter) Write(_ context.Context, dataset string, movies []Movie) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if movies == nil {
		movies = []Movie{}
	}

	doc := Document{Movies: movies}
	if w.withMeta {
		doc.Count = len(movies)
		doc.CrawledAt = w.now().Format("2006-01-02 15:04:05")
		doc.DataType = dataset
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", dataset, err)
	}

	path := w.Path(dataset)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	logging.Info().Str("path", path).Int("movies", len(movies)).
		Float64("size_kb", float64(buf.Len())/1024).Msg("Movies saved")
	return nil
}

// Close is a no-op.
func (w *JSONFileWriter) Close() error { return nil }

// MultiWriter fans a write out to several writers, stopping at the first
// error.
type MultiWriter []MovieWriter

// Write calls every writer in order.
func (m MultiWriter) Write(ctx context.Context, dataset string, movies []Movie) error {
	for _, w := range m {
		if err := w.Write(ctx, dataset, movies); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and returns the first error.
func (m MultiWriter) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
