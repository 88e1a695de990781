// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package services provides suture.Service wrappers for the prediction
// server: the HTTP listener and the one-shot predictor initialization.
package services
