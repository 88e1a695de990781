// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

/*
Package main is the entry point for the Cinescore prediction server.

The server loads the Production version of the registered rating model,
scores the processed test split once and serves the cached predictions
over HTTP. It never retrains or rescores while running.

# Application Architecture

The server runs under a Suture v4 supervision tree:

	RootSupervisor ("cinescore")
	├── ServingSupervisor ("serving-layer")
	│   └── PredictorInitService (one-shot)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Startup order:

 1. Configuration: Koanf v2 with .env files, config.yaml and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. Tracking store: DuckDB opened read-only
 4. Object store: BadgerDB opened read-only
 5. Supervisor tree: the HTTP server starts immediately, the predictor
    initializes in the background

Until initialization succeeds the data endpoints answer 503 and /health
reports "starting". If initialization fails the error is kept, /health
reports "unhealthy" and the process keeps running so the failure stays
observable.

# Configuration

	HTTP_PORT=8000                      # HTTP server port
	LOG_LEVEL=info                      # trace, debug, info, warn, error
	LOG_FORMAT=json                     # json or console
	MLFLOW_TRACKING_URI=./mlruns/tracking.duckdb
	MODEL_REGISTRY_NAME=MovieRatingGBMModel
	OBJECT_STORE_PATH=./artifacts
	S3_BUCKET_NAME=cinescore
	PROCESSED_DATA_DIR=./result
	SERVER_INIT_TIMEOUT=2m              # 0 waits forever
	RATE_LIMIT_REQUESTS=100             # negative disables rate limiting
	CORS_ORIGINS=*

A config.yaml found via CONFIG_PATH (or ./config.yaml) is read before the
environment.

# Signal Handling

On SIGINT or SIGTERM the HTTP server stops accepting connections, waits
for in-flight requests up to server.shutdown_timeout and the stores are
closed. Services that fail to stop in time are reported.

# Usage

	go run ./cmd/train
	go run ./cmd/evaluate
	go run ./cmd/register --policy best
	go run ./cmd/server

Swagger documentation is served at /swagger/index.html and Prometheus
metrics at /metrics.

# See Also

  - internal/serving: prediction cache and readiness state
  - internal/api: HTTP handlers and routing
  - internal/supervisor: process supervision
*/
package main
