// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MissingKeyError reports a required key that resolved to an empty value.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required configuration key %q is missing", e.Key)
}

// IsMissingKey reports whether err wraps a *MissingKeyError.
func IsMissingKey(err error) bool {
	var target *MissingKeyError
	return errors.As(err, &target)
}

// Validate checks the keys every command depends on. Stage-specific keys
// (the catalog API key, the postgres DSN) are checked by ValidateCatalog.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateTracking(); err != nil {
		return err
	}
	return c.validateStorage()
}

// ValidateCatalog checks the keys only the crawler needs.
func (c *Config) ValidateCatalog() error {
	if err := required("catalog.base_url", c.Catalog.BaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL(c.Catalog.BaseURL, "catalog.base_url"); err != nil {
		return err
	}
	if err := required("catalog.api_key", c.Catalog.APIKey); err != nil {
		return err
	}
	switch strings.ToLower(c.Catalog.Listing) {
	case "popular", "upcoming", "top_rated":
	default:
		return fmt.Errorf("catalog.listing must be popular, upcoming or top_rated, got %q", c.Catalog.Listing)
	}
	if c.Catalog.StartPage < 1 {
		return fmt.Errorf("catalog.start_page must be >= 1, got %d", c.Catalog.StartPage)
	}
	if c.Catalog.EndPage < c.Catalog.StartPage {
		return fmt.Errorf("catalog.end_page (%d) must be >= catalog.start_page (%d)",
			c.Catalog.EndPage, c.Catalog.StartPage)
	}
	if c.Catalog.RequestInterval < 0 {
		return fmt.Errorf("catalog.request_interval must not be negative")
	}
	if c.Postgres.Enabled {
		return required("postgres.dsn", c.Postgres.DSN)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_requests must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "off":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
}

func (c *Config) validateData() error {
	keys := []struct {
		key, value string
	}{
		{"data.raw_data_file", c.Data.RawDataFile},
		{"data.processed_data_dir", c.Data.ProcessedDataDir},
		{"data.train_data_file", c.Data.TrainDataFile},
		{"data.test_data_file", c.Data.TestDataFile},
		{"data.feature_names_file", c.Data.FeatureNamesFile},
		{"data.transform_file", c.Data.TransformFile},
	}
	for _, k := range keys {
		if err := required(k.key, k.value); err != nil {
			return err
		}
	}
	if c.Data.TestSize <= 0 || c.Data.TestSize >= 1 {
		return fmt.Errorf("data.test_size must be in (0, 1), got %v", c.Data.TestSize)
	}
	return nil
}

func (c *Config) validateModel() error {
	if err := required("model.target_column", c.Model.TargetColumn); err != nil {
		return err
	}
	if err := required("model.output_dir", c.Model.OutputDir); err != nil {
		return err
	}
	p := c.Model.BoostParams
	if p.MaxDepth < 1 {
		return fmt.Errorf("model.xgboost_params.max_depth must be >= 1, got %d", p.MaxDepth)
	}
	if p.Eta <= 0 || p.Eta > 1 {
		return fmt.Errorf("model.xgboost_params.eta must be in (0, 1], got %v", p.Eta)
	}
	if p.NEstimators < 1 {
		return fmt.Errorf("model.xgboost_params.n_estimators must be >= 1, got %d", p.NEstimators)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("model.xgboost_params.subsample must be in (0, 1], got %v", p.Subsample)
	}
	return nil
}

func (c *Config) validateTracking() error {
	if err := required("mlflow.tracking_uri", c.Tracking.TrackingURI); err != nil {
		return err
	}
	if err := required("mlflow.experiment_name", c.Tracking.ExperimentName); err != nil {
		return err
	}
	return required("mlflow.model_registry_name", c.Tracking.ModelRegistryName)
}

func (c *Config) validateStorage() error {
	if err := required("storage.path", c.Storage.Path); err != nil {
		return err
	}
	return required("storage.bucket", c.Storage.Bucket)
}

func required(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return &MissingKeyError{Key: key}
	}
	return nil
}

// validateHTTPURL accepts absolute http(s) URLs with a host. Paths are
// allowed since the catalog base URL usually carries one.
func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got %q", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", fieldName)
	}
	return nil
}
