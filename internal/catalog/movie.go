// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package catalog crawls movie listings from a TMDB-compatible catalog API
// and persists them as the raw dataset for the feature pipeline.
//
// A crawl never aborts on a bad page: failures are logged, counted and
// yield an empty page. Only context cancellation stops it early.
package catalog

import "strings"

// Movie is one catalog listing entry, kept exactly as the API returned it.
type Movie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	GenreIDs         []int   `json:"genre_ids"`
	Popularity       float64 `json:"popularity"`
	VoteCount        int     `json:"vote_count"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
}

// Rated reports whether the movie has at least one vote and a non-zero
// average. Upcoming releases are split on this.
func (m *Movie) Rated() bool {
	return m.VoteCount > 0 && m.VoteAverage > 0
}

// Document is the on-disk layout read by the feature pipeline. Count,
// CrawledAt and DataType are only set for the upcoming-listing datasets.
type Document struct {
	Movies    []Movie `json:"movies"`
	Count     int     `json:"count,omitempty"`
	CrawledAt string  `json:"crawled_date,omitempty"`
	DataType  string  `json:"data_type,omitempty"`
}

// Listings accepted by the catalog API.
const (
	ListingPopular  = "popular"
	ListingUpcoming = "upcoming"
	ListingTopRated = "top_rated"
)

// ValidListing reports whether name is a listing the crawler knows.
func ValidListing(name string) bool {
	switch strings.ToLower(name) {
	case ListingPopular, ListingUpcoming, ListingTopRated:
		return true
	}
	return false
}

// Summary describes a crawl result for the completion log line.
type Summary struct {
	Total           int
	AverageRating   float64
	EarliestRelease string
	LatestRelease   string
}

// Summarize computes the crawl summary. Movies without a release date are
// excluded from the date range only.
func Summarize(movies []Movie) Summary {
	s := Summary{Total: len(movies)}
	if len(movies) == 0 {
		return s
	}
	var sum float64
	for i := range movies {
		sum += movies[i].VoteAverage
		d := movies[i].ReleaseDate
		if d == "" {
			continue
		}
		if s.EarliestRelease == "" || d < s.EarliestRelease {
			s.EarliestRelease = d
		}
		if d > s.LatestRelease {
			s.LatestRelease = d
		}
	}
	s.AverageRating = sum / float64(len(movies))
	return s
}
