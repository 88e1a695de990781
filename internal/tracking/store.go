// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package tracking records experiment runs and the model registry in DuckDB.
//
// An experiment groups runs. A run carries parameters, metrics and the URI
// of its model artifact. Registered model versions reference a run and move
// through the stages None, Staging, Production and Archived. Batch commands
// open the store read-write; the prediction server opens it read-only.
package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinescore/internal/logging"
)

// ErrReadOnly is returned by write operations on a read-only store.
var ErrReadOnly = errors.New("tracking: store opened read-only")

// schemaQueries creates the tracking tables. Statements run one at a time.
var schemaQueries = []string{
	`CREATE SEQUENCE IF NOT EXISTS run_seq START 1`,

	`CREATE TABLE IF NOT EXISTS experiments (
		experiment_id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		seq BIGINT NOT NULL DEFAULT nextval('run_seq'),
		experiment_id VARCHAR NOT NULL,
		run_name VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		artifact_uri VARCHAR NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS params (
		run_id VARCHAR NOT NULL,
		key VARCHAR NOT NULL,
		value VARCHAR NOT NULL,
		PRIMARY KEY (run_id, key)
	)`,

	`CREATE TABLE IF NOT EXISTS metrics (
		run_id VARCHAR NOT NULL,
		key VARCHAR NOT NULL,
		value DOUBLE NOT NULL,
		logged_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, key)
	)`,

	`CREATE TABLE IF NOT EXISTS model_versions (
		name VARCHAR NOT NULL,
		version INTEGER NOT NULL,
		run_id VARCHAR NOT NULL,
		source VARCHAR NOT NULL,
		stage VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (name, version)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment_id)`,
}

// Options configures Open.
type Options struct {
	// URI is a DuckDB file path, optionally prefixed with "duckdb://".
	// An empty URI or ":memory:" opens a private in-memory database.
	URI string
	// ReadOnly opens an existing database without write access.
	ReadOnly bool
}

// Store is the DuckDB-backed tracking server and model registry.
type Store struct {
	conn     *sql.DB
	path     string
	readOnly bool
	logger   zerolog.Logger
}

var (
	_ Registry      = (*Store)(nil)
	_ MetricsLogger = (*Store)(nil)
)

// Open connects to the tracking database and creates the schema when
// opened read-write.
func Open(ctx context.Context, opts Options) (*Store, error) {
	path := strings.TrimPrefix(opts.URI, "duckdb://")
	inMemory := path == "" || path == ":memory:"
	if inMemory && opts.ReadOnly {
		return nil, errors.New("tracking: an in-memory store cannot be read-only")
	}

	var connStr string
	switch {
	case inMemory:
		path = ":memory:"
		connStr = ""
	case opts.ReadOnly:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("tracking database %s: %w", path, err)
		}
		connStr = path + "?access_mode=read_only"
	default:
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create tracking directory %s: %w", dir, err)
			}
		}
		connStr = path + "?access_mode=read_write"
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to tracking database %s: %w", path, err)
	}

	s := &Store{
		conn:     conn,
		path:     path,
		readOnly: opts.ReadOnly,
		logger:   logging.WithComponent("tracking"),
	}
	if !opts.ReadOnly {
		for _, query := range schemaQueries {
			if _, err := conn.ExecContext(ctx, query); err != nil {
				closeQuietly(conn)
				return nil, fmt.Errorf("failed to create tracking schema: %s: %w", query, err)
			}
		}
	}

	s.logger.Debug().Str("path", path).Bool("read_only", opts.ReadOnly).Msg("Tracking store opened")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database path (":memory:" for in-memory stores).
func (s *Store) Path() string { return s.path }

func (s *Store) writable() error {
	if s.readOnly {
		return ErrReadOnly
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func closeQuietly(c interface{ Close() error }) {
	if c != nil {
		_ = c.Close()
	}
}
