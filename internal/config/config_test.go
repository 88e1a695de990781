// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package config

import (
	"strings"
	"testing"
)

func TestValidateMissingKeys(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"target column", func(c *Config) { c.Model.TargetColumn = "" }, "model.target_column"},
		{"processed dir", func(c *Config) { c.Data.ProcessedDataDir = " " }, "data.processed_data_dir"},
		{"tracking uri", func(c *Config) { c.Tracking.TrackingURI = "" }, "mlflow.tracking_uri"},
		{"registry name", func(c *Config) { c.Tracking.ModelRegistryName = "" }, "mlflow.model_registry_name"},
		{"storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			mk, ok := err.(*MissingKeyError)
			if !ok {
				t.Fatalf("expected *MissingKeyError, got %T", err)
			}
			if mk.Key != tt.key {
				t.Errorf("Key = %q, want %q", mk.Key, tt.key)
			}
		})
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"depth", func(c *Config) { c.Model.BoostParams.MaxDepth = 0 }, "max_depth"},
		{"eta", func(c *Config) { c.Model.BoostParams.Eta = 1.5 }, "eta"},
		{"test size", func(c *Config) { c.Data.TestSize = 1 }, "data.test_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestValidateCatalog(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.ValidateCatalog(); !IsMissingKey(err) {
		t.Fatalf("expected missing api key, got %v", err)
	}

	cfg.Catalog.APIKey = "k"
	if err := cfg.ValidateCatalog(); err != nil {
		t.Fatalf("ValidateCatalog() = %v", err)
	}

	cfg.Catalog.BaseURL = "ftp://example.com/3/movie"
	if err := cfg.ValidateCatalog(); err == nil {
		t.Error("expected scheme error")
	}

	cfg.Catalog.BaseURL = "https://api.example.com/3/movie"
	cfg.Catalog.EndPage = 0
	if err := cfg.ValidateCatalog(); err == nil {
		t.Error("expected page range error")
	}

	cfg.Catalog.EndPage = 5
	cfg.Catalog.Listing = "now_playing"
	if err := cfg.ValidateCatalog(); err == nil {
		t.Error("expected listing error")
	}

	cfg.Catalog.Listing = "Upcoming"
	cfg.Postgres.Enabled = true
	if err := cfg.ValidateCatalog(); !IsMissingKey(err) {
		t.Errorf("expected missing postgres.dsn, got %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	c := CatalogConfig{OutputDir: "result", OutputName: "upcoming"}
	if got := c.OutputPath(); got != "result/upcoming.json" {
		t.Errorf("OutputPath() = %q", got)
	}
}
