// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package metrics holds the Prometheus instrumentation for cinescore.
//
// Every collector is registered on the default registry through promauto so
// the server's /metrics endpoint exposes them without extra wiring. Batch
// commands record into the same collectors; their values are logged at the
// end of a stage rather than scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Catalog Crawl Metrics
	CatalogPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_pages_fetched_total",
			Help: "Catalog pages requested, by listing and result",
		},
		[]string{"listing", "result"}, // result: "success", "failure"
	)

	CatalogMoviesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_movies_fetched_total",
			Help: "Movies decoded from catalog pages",
		},
		[]string{"listing"},
	)

	CatalogFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Duration of a single catalog page fetch including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_rate_limited_total",
			Help: "HTTP 429 responses received from the catalog API",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Feature Pipeline Metrics
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of feature pipeline steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	PipelineStageRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_stage_rows",
			Help: "Rows remaining after each feature pipeline step",
		},
		[]string{"stage"},
	)

	PipelineStageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Feature pipeline step failures",
		},
		[]string{"stage"},
	)

	// Training Metrics
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Wall time of a model fit",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Tracking runs by terminal status",
		},
		[]string{"status"}, // "FINISHED", "FAILED"
	)

	// Serving Metrics
	ServingReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "serving_ready",
			Help: "1 once the prediction cache is populated",
		},
	)

	ServingPredictionsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "serving_predictions_cached",
			Help: "Number of cached predictions",
		},
	)

	ServingInitDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "serving_init_duration_seconds",
			Help: "Time spent initializing the predictor",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCatalogPage records the outcome of one catalog page fetch.
func RecordCatalogPage(listing string, movies int, duration time.Duration, err error) {
	CatalogFetchDuration.Observe(duration.Seconds())
	if err != nil {
		CatalogPagesFetched.WithLabelValues(listing, "failure").Inc()
		return
	}
	CatalogPagesFetched.WithLabelValues(listing, "success").Inc()
	CatalogMoviesFetched.WithLabelValues(listing).Add(float64(movies))
}

// RecordPipelineStage records a feature pipeline step.
func RecordPipelineStage(stage string, rows int, duration time.Duration, err error) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		PipelineStageErrors.WithLabelValues(stage).Inc()
		return
	}
	PipelineStageRows.WithLabelValues(stage).Set(float64(rows))
}

// RecordTrainingRun records a finished or failed training run.
func RecordTrainingRun(status string, duration time.Duration) {
	TrainingRuns.WithLabelValues(status).Inc()
	if duration > 0 {
		TrainingDuration.Observe(duration.Seconds())
	}
}

// SetServingReady publishes the predictor state once initialization ends.
func SetServingReady(ready bool, cached int, initDuration time.Duration) {
	if ready {
		ServingReady.Set(1)
	} else {
		ServingReady.Set(0)
	}
	ServingPredictionsCached.Set(float64(cached))
	ServingInitDuration.Set(initDuration.Seconds())
}
