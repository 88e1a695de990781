// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/cinescore/internal/validation"
)

// DefaultTopLimit is the /top-movies limit when none is given.
const DefaultTopLimit = 10

// TopMoviesRequest holds the validated query of GET /top-movies.
type TopMoviesRequest struct {
	Limit int `query:"limit" validate:"min=1,max=50"`
}

// parseTopMoviesRequest reads the limit parameter. A value that is not an
// integer is reported as a validation error.
func parseTopMoviesRequest(r *http.Request) (*TopMoviesRequest, *validation.APIError) {
	req := &TopMoviesRequest{Limit: DefaultTopLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &validation.APIError{
				Code:    ErrCodeValidationFailed,
				Message: "limit must be an integer",
				Details: map[string]any{"field": "limit", "value": raw},
			}
		}
		req.Limit = n
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr.ToAPIError()
	}
	return req, nil
}
