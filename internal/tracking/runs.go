// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

// Run statuses.
const (
	StatusRunning  = "RUNNING"
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
)

// MetricsLogger records metrics onto a run.
type MetricsLogger interface {
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error
}

// Experiment groups runs under a name.
type Experiment struct {
	ID        string    `json:"experiment_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is one training attempt.
type Run struct {
	ID           string             `json:"run_id"`
	ExperimentID string             `json:"experiment_id"`
	Name         string             `json:"run_name"`
	Status       string             `json:"status"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      *time.Time         `json:"end_time,omitempty"`
	ArtifactURI  string             `json:"artifact_uri,omitempty"`
	Params       map[string]string  `json:"params,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// GetOrCreateExperiment returns the experiment called name, creating it when
// it does not exist. A read-only store returns NotFoundError instead of
// creating.
func (s *Store) GetOrCreateExperiment(ctx context.Context, name string) (*Experiment, error) {
	exp, err := s.GetExperiment(ctx, name)
	if err == nil || !apperrors.IsNotFound(err) || s.readOnly {
		return exp, err
	}

	exp = &Experiment{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO experiments (experiment_id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		exp.ID, exp.Name, exp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create experiment %q: %w", name, err)
	}
	s.logger.Info().Str("experiment", name).Msg("Experiment created")
	return s.GetExperiment(ctx, name)
}

// GetExperiment looks an experiment up by name.
func (s *Store) GetExperiment(ctx context.Context, name string) (*Experiment, error) {
	var exp Experiment
	err := s.conn.QueryRowContext(ctx,
		`SELECT experiment_id, name, created_at FROM experiments WHERE name = ?`, name,
	).Scan(&exp.ID, &exp.Name, &exp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("experiment", name, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query experiment %q: %w", name, err)
	}
	return &exp, nil
}

// StartRun creates a RUNNING run in the experiment.
func (s *Store) StartRun(ctx context.Context, experimentID, name string) (*Run, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	run := &Run{
		ID:           uuid.NewString(),
		ExperimentID: experimentID,
		Name:         name,
		Status:       StatusRunning,
		StartTime:    time.Now().UTC(),
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO runs (run_id, experiment_id, run_name, status, start_time) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.ExperimentID, run.Name, run.Status, run.StartTime)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	s.logger.Info().Str("run_id", run.ID).Str("run_name", name).Msg("Run started")
	return run, nil
}

// EndRun sets the terminal status of a run.
func (s *Store) EndRun(ctx context.Context, runID, status string) error {
	if err := s.writable(); err != nil {
		return err
	}
	if status != StatusFinished && status != StatusFailed {
		return apperrors.Validation("status", fmt.Sprintf("must be %s or %s, got %q", StatusFinished, StatusFailed, status))
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE runs SET status = ?, end_time = ? WHERE run_id = ?`,
		status, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to end run %s: %w", runID, err)
	}
	if err := requireRow(res, "run", runID); err != nil {
		return err
	}
	s.logger.Info().Str("run_id", runID).Str("status", status).Msg("Run ended")
	return nil
}

// SetArtifactURI records where the run's model artifact lives.
func (s *Store) SetArtifactURI(ctx context.Context, runID, uri string) error {
	if err := s.writable(); err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx, `UPDATE runs SET artifact_uri = ? WHERE run_id = ?`, uri, runID)
	if err != nil {
		return fmt.Errorf("failed to set artifact uri: %w", err)
	}
	return requireRow(res, "run", runID)
}

// LogParams records run parameters. Logging a key again overwrites it.
func (s *Store) LogParams(ctx context.Context, runID string, params map[string]string) error {
	if err := s.writable(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range sortedKeys(params) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
				 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
				runID, key, params[key]); err != nil {
				return fmt.Errorf("failed to log param %s: %w", key, err)
			}
		}
		return nil
	})
}

// LogMetrics records run metrics. Logging a key again overwrites it.
// Non-finite values are rejected.
func (s *Store) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	if err := s.writable(); err != nil {
		return err
	}
	for key, v := range metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.Validation(key, "metric value must be finite")
		}
	}
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range sortedKeys(metrics) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO metrics (run_id, key, value, logged_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value, logged_at = excluded.logged_at`,
				runID, key, metrics[key], now); err != nil {
				return fmt.Errorf("failed to log metric %s: %w", key, err)
			}
		}
		return nil
	})
}

const runColumns = `run_id, experiment_id, run_name, status, start_time, end_time, artifact_uri`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var end sql.NullTime
	if err := row.Scan(&r.ID, &r.ExperimentID, &r.Name, &r.Status, &r.StartTime, &end, &r.ArtifactURI); err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		r.EndTime = &t
	}
	return &r, nil
}

// GetRun returns a run with its params and metrics.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := scanRun(s.conn.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run", runID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	if err := s.loadRunData(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadRunData(ctx context.Context, run *Run) error {
	run.Params = make(map[string]string)
	run.Metrics = make(map[string]float64)

	rows, err := s.conn.QueryContext(ctx, `SELECT key, value FROM params WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query params: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			closeQuietly(rows)
			return fmt.Errorf("failed to scan param: %w", err)
		}
		run.Params[k] = v
	}
	closeQuietly(rows)
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.conn.QueryContext(ctx, `SELECT key, value FROM metrics WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query metrics: %w", err)
	}
	defer closeQuietly(rows)
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("failed to scan metric: %w", err)
		}
		run.Metrics[k] = v
	}
	return rows.Err()
}

// LatestRun returns the most recently started run of the experiment.
func (s *Store) LatestRun(ctx context.Context, experimentID string) (*Run, error) {
	var runID string
	err := s.conn.QueryRowContext(ctx,
		`SELECT run_id FROM runs WHERE experiment_id = ?
		 ORDER BY start_time DESC, seq DESC LIMIT 1`, experimentID,
	).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run", "latest in experiment "+experimentID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return s.GetRun(ctx, runID)
}

// BestRun returns the run of the experiment with the lowest value of metric.
// Failed runs and runs without an artifact are ignored.
func (s *Store) BestRun(ctx context.Context, experimentID, metric string) (*Run, error) {
	var runID string
	err := s.conn.QueryRowContext(ctx,
		`SELECT r.run_id FROM runs r
		 JOIN metrics m ON m.run_id = r.run_id
		 WHERE r.experiment_id = ? AND m.key = ?
		   AND r.status <> ? AND r.artifact_uri <> ''
		 ORDER BY m.value ASC, r.seq DESC LIMIT 1`,
		experimentID, metric, StatusFailed,
	).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run", fmt.Sprintf("best by %s in experiment %s", metric, experimentID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query best run: %w", err)
	}
	return s.GetRun(ctx, runID)
}

// ListRuns returns the experiment's runs, newest first.
func (s *Store) ListRuns(ctx context.Context, experimentID string) ([]Run, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE experiment_id = ?
		 ORDER BY start_time DESC, seq DESC`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer closeQuietly(rows)

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound(resource, id, nil)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
