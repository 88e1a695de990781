// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdirTemp moves the test into an empty directory so no stray config.yaml
// or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Errorf("restore dir: %v", err)
		}
	})
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Catalog.RequestInterval != 400*time.Millisecond {
		t.Errorf("Catalog.RequestInterval = %v, want 400ms", cfg.Catalog.RequestInterval)
	}
	if cfg.Catalog.StartPage != 1 || cfg.Catalog.EndPage != 50 {
		t.Errorf("Catalog pages = %d..%d, want 1..50", cfg.Catalog.StartPage, cfg.Catalog.EndPage)
	}
	if cfg.Model.TargetColumn != "vote_average" {
		t.Errorf("Model.TargetColumn = %q, want vote_average", cfg.Model.TargetColumn)
	}
	p := cfg.Model.BoostParams
	if p.MaxDepth != 6 || p.Eta != 0.3 || p.NEstimators != 100 {
		t.Errorf("BoostParams = %+v, want max_depth 6 eta 0.3 n_estimators 100", p)
	}
	if cfg.Data.ReferenceYear != 2024 {
		t.Errorf("Data.ReferenceYear = %d, want 2024", cfg.Data.ReferenceYear)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"TMDB_BASE_URL", "catalog.base_url"},
		{"TMDB_API_KEY", "catalog.api_key"},
		{"MLFLOW_TRACKING_URI", "mlflow.tracking_uri"},
		{"MODEL_REGISTRY_NAME", "mlflow.model_registry_name"},
		{"S3_BUCKET_NAME", "storage.bucket"},
		{"S3_MODEL_PREFIX", "storage.prefix"},
		{"OBJECT_STORE_PATH", "storage.path"},
		{"POSTGRES_DSN", "postgres.dsn"},
		{"LOG_LEVEL", "logging.level"},
		{"HTTP_PORT", "server.port"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.input); got != tt.expected {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	t.Run("no config file", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if got := findConfigFile(); got != "" {
			t.Errorf("findConfigFile() = %q, want empty", got)
		}
	})

	t.Run("default path", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if err := os.WriteFile("config.yaml", []byte("server:\n  port: 9000\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		defer os.Remove("config.yaml")
		if got := findConfigFile(); got != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", got)
		}
	})

	t.Run("CONFIG_PATH takes precedence", func(t *testing.T) {
		custom := filepath.Join(dir, "custom.yaml")
		if err := os.WriteFile(custom, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv(ConfigPathEnvVar, custom)
		if got := findConfigFile(); got != custom {
			t.Errorf("findConfigFile() = %q, want %q", got, custom)
		}
	})
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "pipeline.yaml")
	content := `
data:
  processed_data_dir: /data/processed
model:
  target_column: vote_average
  xgboost_params:
    max_depth: 4
    eta: 0.1
mlflow:
  tracking_uri: /data/tracking.duckdb
  experiment_name: Ratings
  model_registry_name: RatingModel
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Data.ProcessedDataDir != "/data/processed" {
		t.Errorf("ProcessedDataDir = %q", cfg.Data.ProcessedDataDir)
	}
	if cfg.Model.BoostParams.MaxDepth != 4 || cfg.Model.BoostParams.Eta != 0.1 {
		t.Errorf("BoostParams = %+v, want max_depth 4 eta 0.1", cfg.Model.BoostParams)
	}
	if cfg.Model.BoostParams.NEstimators != 100 {
		t.Errorf("unset n_estimators should keep default, got %d", cfg.Model.BoostParams.NEstimators)
	}
	if cfg.Tracking.ExperimentName != "Ratings" || cfg.Tracking.ModelRegistryName != "RatingModel" {
		t.Errorf("Tracking = %+v", cfg.Tracking)
	}
	if got := cfg.Data.Path(cfg.Data.TrainDataFile); got != filepath.Join("/data/processed", "tmdb_train.csv") {
		t.Errorf("Data.Path = %q", got)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("mlflow:\n  model_registry_name: FromFile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("MODEL_REGISTRY_NAME", "FromEnv")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Tracking.ModelRegistryName != "FromEnv" {
		t.Errorf("ModelRegistryName = %q, want FromEnv", cfg.Tracking.ModelRegistryName)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadMissingRequiredKey(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("mlflow:\n  experiment_name: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	_, err := LoadWithKoanf()
	if err == nil {
		t.Fatal("expected error for empty experiment name")
	}
	if !IsMissingKey(err) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
}

func TestDotEnvLoaded(t *testing.T) {
	chdirTemp(t)
	if err := os.WriteFile(".env", []byte("TMDB_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, "")
	// t.Setenv registers cleanup; unset so godotenv may fill it in.
	t.Setenv("TMDB_API_KEY", "")
	os.Unsetenv("TMDB_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Catalog.APIKey != "from-dotenv" {
		t.Errorf("Catalog.APIKey = %q, want from-dotenv", cfg.Catalog.APIKey)
	}
}
