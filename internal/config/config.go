// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package config loads the typed configuration shared by every cinescore
// command.
//
// Values are layered with Koanf v2 (highest priority wins):
//
//  1. Environment variables (after .env files are loaded into the process)
//  2. YAML config file (CONFIG_PATH or the first of DefaultConfigPaths)
//  3. Built-in defaults
//
// The YAML layout keeps the dotted key paths of existing pipeline configs,
// e.g. data.processed_data_dir, model.target_column, model.xgboost_params,
// mlflow.tracking_uri, mlflow.experiment_name and mlflow.model_registry_name.
// A required key that resolves to an empty value fails Load with a
// *MissingKeyError naming the dotted path.
package config

import (
	"path/filepath"
	"time"
)

// Config is the complete configuration tree.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Data     DataConfig     `koanf:"data"`
	Model    ModelConfig    `koanf:"model"`
	Tracking TrackingConfig `koanf:"mlflow"`
	Storage  StorageConfig  `koanf:"storage"`
	Postgres PostgresConfig `koanf:"postgres"`
}

// ServerConfig configures the prediction API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	InitTimeout     time.Duration `koanf:"init_timeout"` // 0 waits forever
}

// LoggingConfig maps onto logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// CatalogConfig configures the movie catalog crawler.
type CatalogConfig struct {
	BaseURL         string        `koanf:"base_url"` // e.g. https://api.themoviedb.org/3/movie
	APIKey          string        `koanf:"api_key"`
	Region          string        `koanf:"region"`
	Language        string        `koanf:"language"`
	Listing         string        `koanf:"listing"`
	RequestInterval time.Duration `koanf:"request_interval"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxRetries      int           `koanf:"max_retries"`
	StartPage       int           `koanf:"start_page"`
	EndPage         int           `koanf:"end_page"`
	OutputDir       string        `koanf:"output_dir"`
	OutputName      string        `koanf:"output_name"`
}

// OutputPath is the JSON document the crawler writes.
func (c CatalogConfig) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputName+".json")
}

// DataConfig locates the feature pipeline inputs and outputs.
type DataConfig struct {
	RawDataFile      string  `koanf:"raw_data_file"`
	ProcessedDataDir string  `koanf:"processed_data_dir"`
	TrainDataFile    string  `koanf:"train_data_file"`
	TestDataFile     string  `koanf:"test_data_file"`
	FullDataFile     string  `koanf:"full_data_file"`
	FeatureNamesFile string  `koanf:"feature_names_file"`
	TransformFile    string  `koanf:"transform_file"`
	ReferenceYear    int     `koanf:"reference_year"`
	TestSize         float64 `koanf:"test_size"`
	SplitSeed        int64   `koanf:"split_seed"`
}

// Path joins name onto the processed data directory.
func (d DataConfig) Path(name string) string {
	return filepath.Join(d.ProcessedDataDir, name)
}

// ModelConfig configures training and the local model store.
type ModelConfig struct {
	TargetColumn string      `koanf:"target_column"`
	OutputDir    string      `koanf:"output_dir"`
	Filename     string      `koanf:"filename"`
	BoostParams  BoostParams `koanf:"xgboost_params"`
}

// BoostParams are the gradient boosting hyperparameters. Key names follow
// the xgboost convention so existing config files keep working.
type BoostParams struct {
	MaxDepth       int     `koanf:"max_depth"`
	Eta            float64 `koanf:"eta"`
	NEstimators    int     `koanf:"n_estimators"`
	MinChildWeight float64 `koanf:"min_child_weight"`
	Lambda         float64 `koanf:"lambda"`
	Gamma          float64 `koanf:"gamma"`
	Subsample      float64 `koanf:"subsample"`
	Seed           int64   `koanf:"seed"`
}

// TrackingConfig configures the experiment tracking store and model registry.
// TrackingURI is a DuckDB database path (a "duckdb://" prefix is accepted).
type TrackingConfig struct {
	TrackingURI       string `koanf:"tracking_uri"`
	ExperimentName    string `koanf:"experiment_name"`
	ModelRegistryName string `koanf:"model_registry_name"`
}

// StorageConfig configures the artifact object store.
type StorageConfig struct {
	Path   string `koanf:"path"`
	Bucket string `koanf:"bucket"`
	Prefix string `koanf:"prefix"`
}

// PostgresConfig configures the optional raw-movie archive.
type PostgresConfig struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn"`
}

// Load reads .env files and then the layered configuration.
func Load() (*Config, error) {
	loadDotEnv()
	return LoadWithKoanf()
}
