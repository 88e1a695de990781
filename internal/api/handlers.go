// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package api

import (
	"time"

	"github.com/tomtom215/cinescore/internal/serving"
)

// Version is reported by the service descriptor and health endpoints.
const Version = "0.1.0"

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_health.go: descriptor, health and status endpoints
//   - handlers_predictions.go: prediction cache endpoints
type Handler struct {
	state     *serving.State
	startTime time.Time
}

// NewHandler creates a handler over the serving state.
func NewHandler(state *serving.State) *Handler {
	return &Handler{
		state:     state,
		startTime: time.Now(),
	}
}
