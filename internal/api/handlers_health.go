// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cinescore/internal/serving"
)

// ServiceInfo is the body of GET /.
type ServiceInfo struct {
	Message   string    `json:"message"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Docs      string    `json:"docs"`
}

// ServiceDetails reports the predictor's sub-components.
type ServiceDetails struct {
	ModelLoaded          bool   `json:"model_loaded"`
	DataLoaded           bool   `json:"data_loaded"`
	PredictionsAvailable bool   `json:"predictions_available"`
	SampleCount          int    `json:"sample_count"`
	ModelName            string `json:"model_name,omitempty"`
	ModelVersion         int    `json:"model_version,omitempty"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status         string         `json:"status"`
	Version        string         `json:"version"`
	Timestamp      time.Time      `json:"timestamp"`
	Uptime         float64        `json:"uptime_seconds"`
	ServiceDetails ServiceDetails `json:"service_details"`
	Error          string         `json:"error,omitempty"`
}

// PredictStatus is the raw predictor state.
type PredictStatus struct {
	Status         string    `json:"status"`
	Ready          bool      `json:"ready"`
	Error          string    `json:"error,omitempty"`
	ModelName      string    `json:"model_name,omitempty"`
	ModelVersion   int       `json:"model_version,omitempty"`
	ModelRunID     string    `json:"model_run_id,omitempty"`
	ModelSource    string    `json:"model_source,omitempty"`
	SampleCount    int       `json:"sample_count"`
	Predictions    int       `json:"predictions"`
	ReadyAt        time.Time `json:"ready_at,omitempty"`
	InitDurationMs int64     `json:"init_duration_ms,omitempty"`
}

// Root handles service descriptor requests
//
// @Summary Service descriptor
// @Description Returns the service name, version and a link to the API docs
// @Tags Core
// @Produce json
// @Success 200 {object} api.ServiceInfo
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ServiceInfo{
		Message:   "Movie Rating Prediction API",
		Version:   Version,
		Status:    "running",
		Timestamp: time.Now().UTC(),
		Docs:      "/swagger/index.html",
	})
}

// Health handles readiness requests
//
// @Summary Get service health
// @Description Returns 200 once predictions are cached and 503 while the predictor is starting or failed to initialize
// @Tags Core
// @Produce json
// @Success 200 {object} api.HealthStatus "Predictor ready"
// @Failure 503 {object} api.HealthStatus "Predictor starting or unhealthy"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	snap := h.state.Snapshot()
	health := HealthStatus{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Seconds(),
		ServiceDetails: ServiceDetails{
			ModelLoaded:          snap.ModelLoaded(),
			DataLoaded:           snap.DataLoaded(),
			PredictionsAvailable: snap.Predictions > 0,
			SampleCount:          snap.SampleCount,
			ModelName:            snap.ModelName,
			ModelVersion:         snap.ModelVersion,
		},
	}

	code := http.StatusOK
	if !snap.Ready() {
		code = http.StatusServiceUnavailable
		health.Status = "starting"
		if snap.Err != nil {
			health.Status = "unhealthy"
			health.Error = snap.Err.Error()
		}
	}
	writeJSON(w, code, health)
}

// HealthLive handles liveness probe requests
//
// @Summary Liveness probe
// @Description Returns 200 while the process is running, regardless of predictor state
// @Tags Core
// @Produce json
// @Success 200 {object} api.APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// PredictStatus handles raw predictor status requests
//
// @Summary Get predictor status
// @Description Returns the predictor lifecycle state, the served model version and cache size
// @Tags Predictions
// @Produce json
// @Success 200 {object} api.APIResponse{data=api.PredictStatus}
// @Router /predict-status [get]
func (h *Handler) PredictStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, predictStatus(h.state.Snapshot()))
}

func predictStatus(snap serving.Snapshot) PredictStatus {
	st := PredictStatus{
		Status:         string(snap.Status),
		Ready:          snap.Ready(),
		ModelName:      snap.ModelName,
		ModelVersion:   snap.ModelVersion,
		ModelRunID:     snap.ModelRunID,
		ModelSource:    snap.ModelSource,
		SampleCount:    snap.SampleCount,
		Predictions:    snap.Predictions,
		ReadyAt:        snap.ReadyAt,
		InitDurationMs: snap.InitDuration.Milliseconds(),
	}
	if snap.Err != nil {
		st.Error = snap.Err.Error()
	}
	return st
}
