// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package main provides the Cinescore prediction HTTP server
//
// @title Cinescore Movie Rating Prediction API
// @version 0.1.0
// @description Serves cached movie rating predictions from the Production model.
// @description
// @description ## Readiness
// @description
// @description Predictions are computed once at startup. Until then the data
// @description endpoints answer 503 with code `SERVICE_UNAVAILABLE`.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description Health endpoints allow 1000 requests per minute.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message"
// @description   },
// @description   "meta": {
// @description     "request_id": "...",
// @description     "timestamp": "2026-01-01T00:00:00Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/cinescore/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
// @schemes http https
//
// @tag.name Core
// @tag.description Service descriptor and health checks
//
// @tag.name Predictions
// @tag.description Cached rating predictions, rankings and statistics
package main
