// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cinescore/internal/serving"
)

// Initializer loads the model and fills the prediction cache.
type Initializer interface {
	Initialize(ctx context.Context) error
}

var _ Initializer = (*serving.State)(nil)

// PredictorInitService runs predictor initialization once and always
// returns suture.ErrDoNotRestart. After a failure the predictor stays
// initializing for the life of the process.
type PredictorInitService struct {
	predictor Initializer
	timeout   time.Duration
	logger    zerolog.Logger
	name      string
}

// NewPredictorInitService creates the init service. A zero timeout lets
// initialization run until the supervisor stops.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPredictorInitService(predictor Initializer, timeout time.Duration, logger zerolog.Logger) *PredictorInitService {
	return &PredictorInitService{
		predictor: predictor,
		timeout:   timeout,
		logger:    logger.With().Str("service", "predictor-init").Logger(),
		name:      "predictor-init",
	}
}

// Serve implements suture.Service.
func (s *PredictorInitService) Serve(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Info().Dur("timeout", s.timeout).Msg("predictor initialization starting")

	err := s.predictor.Initialize(ctx)
	switch {
	case err == nil:
		s.logger.Info().Dur("duration", time.Since(start)).Msg("predictor initialization complete")
	case errors.Is(err, serving.ErrAlreadyInitialized):
		s.logger.Debug().Msg("predictor already initialized")
	case errors.Is(err, context.Canceled):
		s.logger.Info().Msg("predictor initialization canceled")
	default:
		s.logger.Error().Err(err).
			Dur("duration", time.Since(start)).
			Msg("predictor initialization failed, data endpoints will report 503")
	}
	return suture.ErrDoNotRestart
}

// String returns the service name for logging.
func (s *PredictorInitService) String() string {
	return s.name
}
