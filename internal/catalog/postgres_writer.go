// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq" // postgres driver

	"github.com/tomtom215/cinescore/internal/logging"
)

const postgresBatchSize = 100

// PostgresWriter archives raw crawl results in a raw_movies table keyed by
// (dataset, id). Re-crawling a dataset updates rows in place.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter connects, retrying the ping for up to ~20s, and
// creates the schema.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS raw_movies (
			dataset           TEXT          NOT NULL,
			id                BIGINT        NOT NULL,
			title             TEXT          NOT NULL DEFAULT '',
			release_date      TEXT          NOT NULL DEFAULT '',
			original_language TEXT          NOT NULL DEFAULT '',
			popularity        DOUBLE PRECISION NOT NULL DEFAULT 0,
			vote_average      DOUBLE PRECISION NOT NULL DEFAULT 0,
			vote_count        INTEGER       NOT NULL DEFAULT 0,
			payload           JSONB         NOT NULL,
			crawled_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			PRIMARY KEY (dataset, id)
		);

		CREATE INDEX IF NOT EXISTS idx_raw_movies_release ON raw_movies(release_date);
	`)
	return err
}

// Write upserts movies in batches inside one transaction.
func (pw *PostgresWriter) Write(ctx context.Context, dataset string, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := 0; i < len(movies); i += postgresBatchSize {
		end := min(i+postgresBatchSize, len(movies))
		if err := insertBatch(ctx, tx, dataset, dedupeByID(movies[i:end])); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}

	logging.Info().Str("dataset", dataset).Int("movies", len(movies)).Msg("Archived raw movies to postgres")
	return nil
}

// dedupeByID keeps the last occurrence of each id; a single INSERT cannot
// touch the same conflict key twice.
func dedupeByID(batch []Movie) []Movie {
	seen := make(map[int64]int, len(batch))
	out := make([]Movie, 0, len(batch))
	for _, m := range batch {
		if idx, ok := seen[m.ID]; ok {
			out[idx] = m
			continue
		}
		seen[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

func insertBatch(ctx context.Context, tx *sql.Tx, dataset string, batch []Movie) error {
	const cols = 9
	placeholders := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*cols)

	for idx := range batch {
		m := &batch[idx]
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("postgres: encode movie %d: %w", m.ID, err)
		}
		base := idx * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
		args = append(args, dataset, m.ID, m.Title, m.ReleaseDate, m.OriginalLanguage,
			m.Popularity, m.VoteAverage, m.VoteCount, string(payload))
	}

	query := fmt.Sprintf(`
		INSERT INTO raw_movies (dataset, id, title, release_date, original_language,
			popularity, vote_average, vote_count, payload)
		VALUES %s
		ON CONFLICT (dataset, id) DO UPDATE SET
			title = EXCLUDED.title,
			release_date = EXCLUDED.release_date,
			original_language = EXCLUDED.original_language,
			popularity = EXCLUDED.popularity,
			vote_average = EXCLUDED.vote_average,
			vote_count = EXCLUDED.vote_count,
			payload = EXCLUDED.payload,
			crawled_at = NOW()
	`, strings.Join(placeholders, ","))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

// Count returns the number of archived movies in a dataset.
func (pw *PostgresWriter) Count(ctx context.Context, dataset string) (int, error) {
	var n int
	err := pw.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_movies WHERE dataset = $1`, dataset).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
