// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/metrics"
)

// PageFetcher returns the movies of one listing page.
type PageFetcher interface {
	FetchPage(ctx context.Context, listing string, page int) ([]Movie, error)
}

// Crawler walks a page range, pacing requests with a fixed interval.
type Crawler struct {
	fetcher PageFetcher
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewCrawler paces page requests at most once per interval. A zero
// interval disables pacing.
func NewCrawler(fetcher PageFetcher, interval time.Duration) *Crawler {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Crawler{
		fetcher: fetcher,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logging.WithComponent("crawler"),
	}
}

// Crawl fetches pages start..end inclusive and concatenates their movies in
// page order. A failing page is logged and skipped. The returned error is
// non-nil only when ctx ends the crawl early; the movies gathered so far
// are still returned.
func (c *Crawler) Crawl(ctx context.Context, listing string, start, end int) ([]Movie, error) {
	var movies []Movie
	err := c.walk(ctx, listing, start, end, func(page []Movie) {
		movies = append(movies, page...)
	})
	return movies, err
}

// CrawlUpcomingByRating crawls the upcoming listing and splits it into
// movies that already carry ratings and movies that do not.
func (c *Crawler) CrawlUpcomingByRating(ctx context.Context, start, end int) (rated, unrated []Movie, err error) {
	err = c.walk(ctx, ListingUpcoming, start, end, func(page []Movie) {
		for i := range page {
			if page[i].Rated() {
				rated = append(rated, page[i])
			} else {
				unrated = append(unrated, page[i])
			}
		}
		c.logger.Debug().Int("rated", len(rated)).Int("unrated", len(unrated)).Msg("Upcoming split so far")
	})
	return rated, unrated, err
}

func (c *Crawler) walk(ctx context.Context, listing string, start, end int, sink func([]Movie)) error {
	total := end - start + 1
	if total <= 0 {
		return nil
	}
	c.logger.Info().Str("listing", listing).Int("pages", total).
		Int("expected_movies", total*20).Msg("Starting catalog crawl")

	collected := 0
	for page := start; page <= end; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn().Err(err).Int("page", page).Msg("Crawl interrupted")
			return fmt.Errorf("crawl %s interrupted at page %d: %w", listing, page, err)
		}

		started := time.Now()
		movies, err := c.fetcher.FetchPage(ctx, listing, page)
		metrics.RecordCatalogPage(listing, len(movies), time.Since(started), err)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("crawl %s interrupted at page %d: %w", listing, page, ctx.Err())
			}
			c.logger.Error().Err(err).Int("page", page).Msg("Failed to fetch page")
			continue
		}
		if len(movies) == 0 {
			c.logger.Warn().Int("page", page).Msg("No movies found on page")
			continue
		}

		collected += len(movies)
		sink(movies)
		c.logger.Info().Int("page", page).Int("end_page", end).Int("got", len(movies)).
			Int("total", collected).Msg("Crawled page")
	}

	c.logger.Info().Str("listing", listing).Int("total", collected).Msg("Crawl completed")
	return nil
}
