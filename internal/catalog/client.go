// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/metrics"
)

const maxErrorBodySize = 4 * 1024

// Client fetches listing pages from the catalog API.
//
// Every call goes through a circuit breaker that opens once 60% of at
// least 10 requests in a one-minute window have failed, and HTTP 429
// responses are retried with exponential backoff (honoring Retry-After)
// before they count as a failure.
type Client struct {
	baseURL        string
	apiKey         string
	language       string
	region         string
	client         *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	cb             *gobreaker.CircuitBreaker[[]Movie]
	name           string
}

// NewClient builds a client from the catalog config section.
func NewClient(cfg *config.CatalogConfig) *Client {
	name := "catalog-api"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		language:       cfg.Language,
		region:         cfg.Region,
		client:         &http.Client{Timeout: cfg.Timeout},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: time.Second,
		name:           name,
	}

	c.cb = gobreaker.NewCircuitBreaker[[]Movie](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Catalog circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return c
}

// FetchPage returns the `results` array of one listing page.
func (c *Client) FetchPage(ctx context.Context, listing string, page int) ([]Movie, error) {
	movies, err := c.cb.Execute(func() ([]Movie, error) {
		return c.fetch(ctx, listing, page)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		return nil, apperrors.Upstream("catalog", 0, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
	}
	return movies, err
}

func (c *Client) fetch(ctx context.Context, listing string, page int) ([]Movie, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	params.Set("region", c.region)
	params.Set("page", strconv.Itoa(page))
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, listing, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, apperrors.Upstream("catalog", resp.StatusCode,
			fmt.Errorf("%s page %d: %s", listing, page, strings.TrimSpace(string(body))))
	}

	var payload struct {
		Results []Movie `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s page %d: %w", listing, page, err)
	}
	return payload.Results, nil
}

// doRequestWithRateLimit retries HTTP 429 with delays of 1s, 2s, 4s ... or
// the server's Retry-After when given.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, apperrors.Upstream("catalog", 0, err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		metrics.CatalogRateLimited.Inc()
		_ = resp.Body.Close()

		if attempt >= c.maxRetries {
			return nil, apperrors.Upstream("catalog", http.StatusTooManyRequests,
				fmt.Errorf("rate limit exceeded after %d retries", c.maxRetries))
		}

		delay := retryAfter(resp.Header.Get("Retry-After"), c.retryBaseDelay*time.Duration(1<<uint(attempt)))
		logging.Debug().Dur("delay", delay).Int("attempt", attempt+1).Msg("Catalog rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date, falling back to def.
func retryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return def
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
