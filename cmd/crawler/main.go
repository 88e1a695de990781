// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main crawls a movie catalog listing into a JSON document.
//
// The popular and top_rated listings are written to
// {catalog.output_dir}/{catalog.output_name}.json. The upcoming listing is
// split into test_upcoming_rated.json (at most 100 movies) and
// test_upcoming_unrated.json (at most 50). When postgres.enabled is set the
// same movies are archived into the raw_movies table.
//
//	go run ./cmd/crawler --listing popular --start_page 1 --end_page 50
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tomtom215/cinescore/internal/catalog"
	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/logging"
)

// Upcoming test set sizes.
const (
	maxUpcomingRated   = 100
	maxUpcomingUnrated = 50
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	listing := flag.String("listing", cfg.Catalog.Listing, "catalog listing: popular, upcoming or top_rated")
	startPage := flag.Int("start_page", cfg.Catalog.StartPage, "first page to crawl")
	endPage := flag.Int("end_page", cfg.Catalog.EndPage, "last page to crawl (inclusive)")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	cfg.Catalog.Listing = strings.ToLower(*listing)
	cfg.Catalog.StartPage = *startPage
	cfg.Catalog.EndPage = *endPage
	if err := cfg.ValidateCatalog(); err != nil {
		logging.Fatal().Err(err).Msg("Invalid catalog configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, err := newWriter(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create movie writer")
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing movie writer")
		}
	}()

	crawler := catalog.NewCrawler(catalog.NewClient(&cfg.Catalog), cfg.Catalog.RequestInterval)

	if cfg.Catalog.Listing == catalog.ListingUpcoming {
		err = crawlUpcoming(ctx, crawler, writer, cfg.Catalog.StartPage, cfg.Catalog.EndPage)
	} else {
		err = crawlListing(ctx, crawler, writer, cfg.Catalog)
	}
	if err != nil {
		logging.Error().Err(err).Msg("Crawl failed")
		stop()
		os.Exit(1)
	}
}

func newWriter(ctx context.Context, cfg *config.Config) (catalog.MovieWriter, error) {
	files := catalog.NewJSONFileWriter(cfg.Catalog.OutputDir)
	if cfg.Catalog.Listing == catalog.ListingUpcoming {
		files = files.WithMetadata()
	}
	if !cfg.Postgres.Enabled {
		return files, nil
	}

	pg, err := catalog.NewPostgresWriter(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	logging.Info().Msg("Archiving raw movies to PostgreSQL")
	return catalog.MultiWriter{files, pg}, nil
}

func crawlListing(ctx context.Context, crawler *catalog.Crawler, writer catalog.MovieWriter, cc config.CatalogConfig) error {
	movies, crawlErr := crawler.Crawl(ctx, cc.Listing, cc.StartPage, cc.EndPage)
	// Pages gathered before an interruption are still written.
	if err := save(ctx, writer, cc.OutputName, movies); err != nil {
		return err
	}
	return crawlErr
}

func crawlUpcoming(ctx context.Context, crawler *catalog.Crawler, writer catalog.MovieWriter, start, end int) error {
	rated, unrated, crawlErr := crawler.CrawlUpcomingByRating(ctx, start, end)
	logging.Info().Int("rated", len(rated)).Int("unrated", len(unrated)).Msg("Collected upcoming movies")

	if len(rated) > maxUpcomingRated {
		rated = rated[:maxUpcomingRated]
	}
	if len(unrated) > maxUpcomingUnrated {
		unrated = unrated[:maxUpcomingUnrated]
	}

	if len(rated) > 0 {
		if err := save(ctx, writer, "test_upcoming_rated", rated); err != nil {
			return err
		}
	}
	if len(unrated) > 0 {
		if err := save(ctx, writer, "test_upcoming_unrated", unrated); err != nil {
			return err
		}
	}
	return crawlErr
}

func save(ctx context.Context, writer catalog.MovieWriter, dataset string, movies []catalog.Movie) error {
	if err := writer.Write(ctx, dataset, movies); err != nil {
		return err
	}

	s := catalog.Summarize(movies)
	event := logging.Info().
		Str("dataset", dataset).
		Int("movies", s.Total)
	if s.Total > 0 {
		event = event.
			Float64("average_rating", s.AverageRating).
			Str("earliest_release", s.EarliestRelease).
			Str("latest_release", s.LatestRelease)
	}
	event.Msg("Movies saved")
	return nil
}
