// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package api

import (
	"net/http"

	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/serving"
)

// PredictionsResponse is the data of GET /predictions.
type PredictionsResponse struct {
	Predictions []pipeline.Prediction `json:"predictions"`
	TotalCount  int                   `json:"total_count"`
}

// TopMoviesResponse is the data of GET /top-movies.
type TopMoviesResponse struct {
	TopMovies   []serving.RankedPrediction `json:"top_movies"`
	Limit       int                        `json:"limit"`
	TotalMovies int                        `json:"total_movies"`
}

// StatsResponse is the data of GET /stats.
type StatsResponse struct {
	Statistics   *serving.Stats `json:"statistics"`
	Distribution map[string]int `json:"distribution"`
}

// Predictions handles requests for every cached prediction
//
// @Summary List predictions
// @Description Returns the cached prediction for every test-set movie in cache order
// @Tags Predictions
// @Produce json
// @Success 200 {object} api.APIResponse{data=api.PredictionsResponse}
// @Failure 503 {object} api.APIResponse "Predictor not initialized"
// @Router /predictions [get]
func (h *Handler) Predictions(w http.ResponseWriter, r *http.Request) {
	preds, err := h.state.Predictions()
	if err != nil {
		respondServingError(w, r, err)
		return
	}
	WriteSuccess(w, r, PredictionsResponse{Predictions: preds, TotalCount: len(preds)})
}

// TopMovies handles top-N requests
//
// @Summary Top rated movies
// @Description Returns the movies with the highest predicted rating, ranked from 1
// @Tags Predictions
// @Produce json
// @Param limit query int false "Number of movies (1-50)" default(10) minimum(1) maximum(50)
// @Success 200 {object} api.APIResponse{data=api.TopMoviesResponse}
// @Failure 400 {object} api.APIResponse "Invalid limit"
// @Failure 503 {object} api.APIResponse "Predictor not initialized"
// @Router /top-movies [get]
func (h *Handler) TopMovies(w http.ResponseWriter, r *http.Request) {
	req, apiErr := parseTopMoviesRequest(r)
	if apiErr != nil {
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	top, err := h.state.Top(req.Limit)
	if err != nil {
		respondServingError(w, r, err)
		return
	}
	WriteSuccess(w, r, TopMoviesResponse{
		TopMovies:   top,
		Limit:       req.Limit,
		TotalMovies: h.state.Snapshot().Predictions,
	})
}

// Stats handles summary statistics requests
//
// @Summary Prediction statistics
// @Description Returns total, mean, min, max and standard deviation of predicted ratings and a rating histogram
// @Tags Predictions
// @Produce json
// @Success 200 {object} api.APIResponse{data=api.StatsResponse}
// @Failure 503 {object} api.APIResponse "Predictor not initialized"
// @Router /stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.state.Stats()
	if err != nil {
		respondServingError(w, r, err)
		return
	}
	WriteSuccess(w, r, StatsResponse{Statistics: st, Distribution: st.Distribution})
}
