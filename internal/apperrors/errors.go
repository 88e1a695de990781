// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package apperrors defines the error kinds shared by every pipeline stage.
//
// Lower layers construct one of these types (usually wrapping a lower-level
// cause) and callers classify with errors.As or the Is* helpers:
//
//	if apperrors.IsNotFound(err) {
//	    resp.NotFound(err.Error())
//	}
//
// Batch commands exit non-zero on any of them; the serving layer maps them
// to HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing file, run, experiment, model or version.
type NotFoundError struct {
	Resource string
	ID       string
	Cause    error
}

// NotFound creates a NotFoundError.
func NotFound(resource, id string, cause error) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id, Cause: cause}
}

func (e *NotFoundError) Error() string {
	msg := e.Resource + " not found"
	if e.ID != "" {
		msg = fmt.Sprintf("%s %q not found", e.Resource, e.ID)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *NotFoundError) Unwrap() error { return e.Cause }

// ValidationError reports a schema problem: missing required columns or a
// feature manifest that does not match the matrix it describes.
type ValidationError struct {
	Field   string
	Message string
	Missing []string
}

// Validation creates a ValidationError.
func Validation(field, message string, missing ...string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Missing: missing}
}

func (e *ValidationError) Error() string {
	msg := "validation failed"
	if e.Field != "" {
		msg += " for " + e.Field
	}
	msg += ": " + e.Message
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" %v", e.Missing)
	}
	return msg
}

// UpstreamServiceError reports a failing external collaborator: the catalog
// API, the tracking store, the registry or object storage.
type UpstreamServiceError struct {
	Service    string
	StatusCode int
	Cause      error
}

// Upstream creates an UpstreamServiceError.
func Upstream(service string, status int, cause error) *UpstreamServiceError {
	return &UpstreamServiceError{Service: service, StatusCode: status, Cause: cause}
}

func (e *UpstreamServiceError) Error() string {
	msg := e.Service + " unavailable"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *UpstreamServiceError) Unwrap() error { return e.Cause }

// DataQualityError reports data that parsed but is unusable, for example
// zero rows left after filtering.
type DataQualityError struct {
	Stage   string
	Message string
}

// DataQuality creates a DataQualityError.
func DataQuality(stage, message string) *DataQualityError {
	return &DataQualityError{Stage: stage, Message: message}
}

func (e *DataQualityError) Error() string {
	return "data quality (" + e.Stage + "): " + e.Message
}

// DataFormatError reports an input document that cannot be parsed into a
// table at all.
type DataFormatError struct {
	Path  string
	Cause error
}

// DataFormat creates a DataFormatError.
func DataFormat(path string, cause error) *DataFormatError {
	return &DataFormatError{Path: path, Cause: cause}
}

func (e *DataFormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid data format in %s: %v", e.Path, e.Cause)
	}
	return "invalid data format in " + e.Path
}

// Unwrap returns the underlying cause.
func (e *DataFormatError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUpstream reports whether err wraps an *UpstreamServiceError.
func IsUpstream(err error) bool {
	var target *UpstreamServiceError
	return errors.As(err, &target)
}

// IsDataQuality reports whether err wraps a *DataQualityError.
func IsDataQuality(err error) bool {
	var target *DataQualityError
	return errors.As(err, &target)
}

// IsDataFormat reports whether err wraps a *DataFormatError.
func IsDataFormat(err error) bool {
	var target *DataFormatError
	return errors.As(err, &target)
}
