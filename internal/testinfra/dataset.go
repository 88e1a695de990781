// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package testinfra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/features"
)

// Dataset is a preprocessed fixture written to a temp directory.
type Dataset struct {
	Dir       string
	RawFile   string
	Files     features.OutputFiles
	Result    *features.Result
	RawMovies []map[string]any
}

// Path joins name onto the dataset directory.
func (d *Dataset) Path(name string) string {
	return filepath.Join(d.Dir, name)
}

// Movies returns n valid catalog movies released one per year from 1990,
// with ratings that depend on genre and vote count.
func Movies(n int) []map[string]any {
	langs := []string{"en", "ko", "fr", "ja"}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		genres := []int{18}
		rating := 6.0
		if i%2 == 0 {
			genres = []int{28, 12}
			rating = 5.2
		}
		if i%3 == 0 {
			genres = append(genres, 16)
			rating += 1.5
		}
		rating += float64(i%5) * 0.3
		m := MovieFixture(1000+i, fmt.Sprintf("Movie %d", i), rating, 20+i*7)
		m["release_date"] = fmt.Sprintf("%d-%02d-10", 1990+i, i%12+1)
		m["genre_ids"] = genres
		m["popularity"] = 3 + float64(i%11)*4.5
		m["original_language"] = langs[i%len(langs)]
		if i%6 == 0 {
			m["overview"] = ""
		}
		out[i] = m
	}
	return out
}

// WriteMovies writes movies as a {"movies": [...]} file and returns its path.
func WriteMovies(t *testing.T, dir string, movies []map[string]any) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{"movies": movies})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "tmdb_popular_movies.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ProcessedDataset runs the feature pipeline over n fixture movies and saves
// the outputs under a fresh temp directory.
func ProcessedDataset(t *testing.T, n int) *Dataset {
	t.Helper()
	dir := t.TempDir()
	movies := Movies(n)
	raw := WriteMovies(t, dir, movies)

	res, err := features.NewPipeline(features.DefaultOptions()).Run(context.Background(), raw)
	if err != nil {
		t.Fatalf("feature pipeline: %v", err)
	}
	files := features.DefaultOutputFiles()
	processed := filepath.Join(dir, "processed")
	if err := res.Save(processed, files); err != nil {
		t.Fatalf("save processed data: %v", err)
	}
	return &Dataset{Dir: processed, RawFile: raw, Files: files, Result: res, RawMovies: movies}
}
