// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"config/config.yaml",
	"/etc/cinescore/config.yaml",
}

// DotEnvPaths are tried in order; the first that exists is loaded. Variables
// already set in the process are never overridden.
var DotEnvPaths = []string{".env", "../.env", "../../.env"}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Catalog: CatalogConfig{
			BaseURL:         "https://api.themoviedb.org/3/movie",
			Region:          "KR",
			Language:        "ko-KR",
			Listing:         "popular",
			RequestInterval: 400 * time.Millisecond,
			Timeout:         30 * time.Second,
			MaxRetries:      3,
			StartPage:       1,
			EndPage:         50,
			OutputDir:       "./result",
			OutputName:      "popular",
		},
		Data: DataConfig{
			RawDataFile:      "./result/popular.json",
			ProcessedDataDir: "./result",
			TrainDataFile:    "tmdb_train.csv",
			TestDataFile:     "tmdb_test.csv",
			FullDataFile:     "tmdb_processed_full.csv",
			FeatureNamesFile: "feature_names.json",
			TransformFile:    "feature_transform.gob.gz",
			ReferenceYear:    2024,
			TestSize:         0.2,
			SplitSeed:        42,
		},
		Model: ModelConfig{
			TargetColumn: "vote_average",
			OutputDir:    "./model_artifacts",
			Filename:     "gbm_md6_eta0_3_v1.gob.gz",
			BoostParams: BoostParams{
				MaxDepth:       6,
				Eta:            0.3,
				NEstimators:    100,
				MinChildWeight: 1,
				Lambda:         1,
				Subsample:      1,
				Seed:           42,
			},
		},
		Tracking: TrackingConfig{
			TrackingURI:       "./mlruns/tracking.duckdb",
			ExperimentName:    "Movie Rating Prediction",
			ModelRegistryName: "MovieRatingGBMModel",
		},
		Storage: StorageConfig{
			Path:   "./artifacts",
			Bucket: "cinescore",
			Prefix: "models/",
		},
	}
}

// LoadWithKoanf loads defaults, then the YAML file, then environment
// variables, unmarshals into Config and validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadDotEnv() {
	for _, p := range DotEnvPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":                "server.host",
	"http_port":                "server.port",
	"cors_origins":             "server.cors_origins",
	"rate_limit_requests":      "server.rate_limit_requests",
	"rate_limit_window":        "server.rate_limit_window",
	"server_init_timeout":      "server.init_timeout",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
	"log_caller":               "logging.caller",
	"tmdb_base_url":            "catalog.base_url",
	"tmdb_api_key":             "catalog.api_key",
	"tmdb_region":              "catalog.region",
	"tmdb_language":            "catalog.language",
	"crawl_listing":            "catalog.listing",
	"crawl_request_interval":   "catalog.request_interval",
	"crawl_start_page":         "catalog.start_page",
	"crawl_end_page":           "catalog.end_page",
	"crawl_output_dir":         "catalog.output_dir",
	"raw_data_file":            "data.raw_data_file",
	"processed_data_dir":       "data.processed_data_dir",
	"target_column":            "model.target_column",
	"model_output_dir":         "model.output_dir",
	"model_filename":           "model.filename",
	"mlflow_tracking_uri":      "mlflow.tracking_uri",
	"mlflow_experiment_name":   "mlflow.experiment_name",
	"model_registry_name":      "mlflow.model_registry_name",
	"object_store_path":        "storage.path",
	"s3_bucket_name":           "storage.bucket",
	"s3_model_prefix":          "storage.prefix",
	"postgres_enabled":         "postgres.enabled",
	"postgres_dsn":             "postgres.dsn",
	"gbm_max_depth":            "model.xgboost_params.max_depth",
	"gbm_eta":                  "model.xgboost_params.eta",
	"gbm_n_estimators":         "model.xgboost_params.n_estimators",
	"feature_reference_year":   "data.reference_year",
	"feature_split_seed":       "data.split_seed",
	"feature_transform_file":   "data.transform_file",
	"feature_names_file":       "data.feature_names_file",
	"processed_test_data_file": "data.test_data_file",
}

// envTransformFunc maps known environment variables onto koanf paths and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
