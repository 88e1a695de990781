// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/serving"
)

// respondServingError maps a serving error to a status code and writes it.
// Internal details are logged, not returned.
func respondServingError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)
	switch {
	case errors.Is(err, serving.ErrNotReady):
		rw.ServiceUnavailable("Prediction service is not initialized")
	case apperrors.IsNotFound(err):
		rw.NotFound(err.Error())
	case apperrors.IsValidation(err):
		rw.ValidationError(err.Error(), nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		rw.InternalError("Internal server error")
	}
}
