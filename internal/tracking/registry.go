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
	"time"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

// Registry stages.
const (
	StageNone       = "None"
	StageStaging    = "Staging"
	StageProduction = "Production"
	StageArchived   = "Archived"
)

// ValidStage reports whether stage is a registry stage.
func ValidStage(stage string) bool {
	switch stage {
	case StageNone, StageStaging, StageProduction, StageArchived:
		return true
	}
	return false
}

// Registry is the model registry capability used by registration and
// serving.
type Registry interface {
	// GetLatest returns the highest version of name in stage. An empty
	// stage matches any stage.
	GetLatest(ctx context.Context, name, stage string) (*ModelVersion, error)
	// Register creates the next version of name for runID in stage None.
	Register(ctx context.Context, name, runID, source string) (*ModelVersion, error)
	// TransitionStage moves a version to stage. With archiveExisting, every
	// other version currently in that stage moves to Archived in the same
	// transaction.
	TransitionStage(ctx context.Context, name string, version int, stage string, archiveExisting bool) (*ModelVersion, error)
}

// ModelVersion is one registered version of a model.
type ModelVersion struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Stage     string    `json:"current_stage"`
	CreatedAt time.Time `json:"creation_timestamp"`
	UpdatedAt time.Time `json:"last_updated_timestamp"`
}

// URI returns the registry address of the version.
func (v ModelVersion) URI() string {
	return fmt.Sprintf("models:/%s/%d", v.Name, v.Version)
}

const versionColumns = `name, version, run_id, source, stage, created_at, updated_at`

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getVersion(ctx context.Context, q rowQuerier, name string, version int) (*ModelVersion, error) {
	var mv ModelVersion
	err := q.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM model_versions WHERE name = ? AND version = ?`, name, version,
	).Scan(&mv.Name, &mv.Version, &mv.RunID, &mv.Source, &mv.Stage, &mv.CreatedAt, &mv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("model version", fmt.Sprintf("%s/%d", name, version), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model version: %w", err)
	}
	return &mv, nil
}

// GetLatest implements Registry.
func (s *Store) GetLatest(ctx context.Context, name, stage string) (*ModelVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM model_versions WHERE name = ?`
	args := []any{name}
	if stage != "" {
		if !ValidStage(stage) {
			return nil, apperrors.Validation("stage", fmt.Sprintf("unknown registry stage %q", stage))
		}
		query += ` AND stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY version DESC LIMIT 1`

	var mv ModelVersion
	err := s.conn.QueryRowContext(ctx, query, args...).
		Scan(&mv.Name, &mv.Version, &mv.RunID, &mv.Source, &mv.Stage, &mv.CreatedAt, &mv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		id := name
		if stage != "" {
			id += "@" + stage
		}
		return nil, apperrors.NotFound("model version", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest model version: %w", err)
	}
	return &mv, nil
}

// GetVersion returns a specific version.
func (s *Store) GetVersion(ctx context.Context, name string, version int) (*ModelVersion, error) {
	return getVersion(ctx, s.conn, name, version)
}

// FindVersionByRun returns the newest version of name registered from runID.
func (s *Store) FindVersionByRun(ctx context.Context, name, runID string) (*ModelVersion, error) {
	var version int
	err := s.conn.QueryRowContext(ctx,
		`SELECT version FROM model_versions WHERE name = ? AND run_id = ? ORDER BY version DESC LIMIT 1`,
		name, runID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("model version", name+" for run "+runID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model version by run: %w", err)
	}
	return s.GetVersion(ctx, name, version)
}

// ListVersions returns all versions of name in ascending order.
func (s *Store) ListVersions(ctx context.Context, name string) ([]ModelVersion, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM model_versions WHERE name = ? ORDER BY version`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list model versions: %w", err)
	}
	defer closeQuietly(rows)

	var out []ModelVersion
	for rows.Next() {
		var mv ModelVersion
		if err := rows.Scan(&mv.Name, &mv.Version, &mv.RunID, &mv.Source, &mv.Stage, &mv.CreatedAt, &mv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model version: %w", err)
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

// Register implements Registry. An empty source defaults to the run's
// artifact URI.
func (s *Store) Register(ctx context.Context, name, runID, source string) (*ModelVersion, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.Validation("name", "model name is required")
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = run.ArtifactURI
	}
	if source == "" {
		return nil, apperrors.Validation("source", "run "+runID+" has no model artifact")
	}

	var mv *ModelVersion
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM model_versions WHERE name = ?`, name,
		).Scan(&next); err != nil {
			return fmt.Errorf("failed to compute next version: %w", err)
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			name, next, runID, source, StageNone, now, now); err != nil {
			return fmt.Errorf("failed to insert model version: %w", err)
		}
		mv = &ModelVersion{
			Name: name, Version: next, RunID: runID, Source: source,
			Stage: StageNone, CreatedAt: now, UpdatedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("model", name).
		Int("version", mv.Version).
		Str("run_id", runID).
		Msg("Model version registered")
	return mv, nil
}

// TransitionStage implements Registry.
func (s *Store) TransitionStage(ctx context.Context, name string, version int, stage string, archiveExisting bool) (*ModelVersion, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	if !ValidStage(stage) {
		return nil, apperrors.Validation("stage", fmt.Sprintf("unknown registry stage %q", stage))
	}

	var mv *ModelVersion
	var archived int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getVersion(ctx, tx, name, version); err != nil {
			return err
		}
		now := time.Now().UTC()
		if archiveExisting && stage != StageArchived && stage != StageNone {
			res, err := tx.ExecContext(ctx,
				`UPDATE model_versions SET stage = ?, updated_at = ?
				 WHERE name = ? AND stage = ? AND version <> ?`,
				StageArchived, now, name, stage, version)
			if err != nil {
				return fmt.Errorf("failed to archive existing versions: %w", err)
			}
			archived, _ = res.RowsAffected()
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE model_versions SET stage = ?, updated_at = ? WHERE name = ? AND version = ?`,
			stage, now, name, version); err != nil {
			return fmt.Errorf("failed to transition model version: %w", err)
		}
		var err error
		mv, err = getVersion(ctx, tx, name, version)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("model", name).
		Int("version", version).
		Str("stage", stage).
		Int64("archived", archived).
		Msg("Model version transitioned")
	return mv, nil
}
