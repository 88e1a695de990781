// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package testinfra provides test doubles and containers shared by package
// tests: an in-process catalog API, preprocessed dataset fixtures and,
// behind the integration build tag, a PostgreSQL container.
package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// CatalogRequest is one captured request to the mock catalog.
type CatalogRequest struct {
	Listing string
	Page    int
	Query   map[string]string
}

// MockCatalogServer serves `GET /{listing}?page=N` with canned pages in the
// shape of the TMDB movie listing API.
type MockCatalogServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	pages    map[string]map[int][]map[string]any
	statuses map[string]map[int][]int
	captures []CatalogRequest
}

// NewMockCatalogServer starts a server that is closed on test cleanup.
func NewMockCatalogServer(t *testing.T) *MockCatalogServer {
	t.Helper()

	m := &MockCatalogServer{
		pages:    make(map[string]map[int][]map[string]any),
		statuses: make(map[string]map[int][]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Server.Close)
	return m
}

// URL is the base URL to configure as catalog.base_url.
func (m *MockCatalogServer) URL() string {
	return m.Server.URL
}

// SetPage registers the movies returned for a listing page.
func (m *MockCatalogServer) SetPage(listing string, page int, movies []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages[listing] == nil {
		m.pages[listing] = make(map[int][]map[string]any)
	}
	m.pages[listing][page] = movies
}

// QueueStatus makes the next requests for a page answer with the given
// status codes, in order, before falling back to the canned page.
func (m *MockCatalogServer) QueueStatus(listing string, page int, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses[listing] == nil {
		m.statuses[listing] = make(map[int][]int)
	}
	m.statuses[listing][page] = append(m.statuses[listing][page], statuses...)
}

// Requests returns a copy of the captured requests.
func (m *MockCatalogServer) Requests() []CatalogRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CatalogRequest, len(m.captures))
	copy(out, m.captures)
	return out
}

func (m *MockCatalogServer) serve(w http.ResponseWriter, r *http.Request) {
	listing := strings.Trim(r.URL.Path, "/")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	query := make(map[string]string)
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	m.mu.Lock()
	m.captures = append(m.captures, CatalogRequest{Listing: listing, Page: page, Query: query})
	var status int
	if queued := m.statuses[listing][page]; len(queued) > 0 {
		status = queued[0]
		m.statuses[listing][page] = queued[1:]
	}
	movies := m.pages[listing][page]
	m.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "0")
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	if movies == nil {
		movies = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"page":    page,
		"results": movies,
	})
}

// MovieFixture builds a catalog movie object with sensible defaults.
func MovieFixture(id int, title string, voteAverage float64, voteCount int) map[string]any {
	return map[string]any{
		"id":                id,
		"title":             title,
		"original_title":    title,
		"overview":          "A film about " + title,
		"release_date":      "2021-07-15",
		"genre_ids":         []int{28, 12},
		"popularity":        42.5,
		"vote_average":      voteAverage,
		"vote_count":        voteCount,
		"original_language": "en",
		"poster_path":       "/poster.jpg",
		"backdrop_path":     "/backdrop.jpg",
		"adult":             false,
		"video":             false,
	}
}
