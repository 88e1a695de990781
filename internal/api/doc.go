// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

/*
Package api provides the HTTP REST API over the serving prediction cache.

Endpoints:

  - GET /                service descriptor
  - GET /health          readiness with service_details (503 until ready)
  - GET /health/live     liveness
  - GET /predict-status  raw predictor state
  - GET /predictions     every cached prediction
  - GET /top-movies      highest predictions, ?limit=1..50 (default 10)
  - GET /stats           aggregate statistics and a rating histogram
  - GET /metrics         Prometheus metrics
  - GET /swagger/*       API documentation

Data endpoints use the APIResponse envelope and answer 503
SERVICE_UNAVAILABLE while the predictor is initializing. The descriptor
and /health return bare JSON so load balancers and the dashboard can read
them directly.

Usage:

	state := serving.NewState(registry, loader, cfg)
	router := api.NewRouter(api.NewHandler(state), api.ChiMiddlewareConfigFromServer(cfg.Server))
	srv := &http.Server{Addr: ":8000", Handler: router.SetupChi()}
*/
package api
