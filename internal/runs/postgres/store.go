// Package postgres persists run summaries.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS run_summaries (
//	    run_id      TEXT PRIMARY KEY,
//	    started_at  TIMESTAMPTZ NOT NULL,
//	    finished_at TIMESTAMPTZ NOT NULL,
//	    dry_run     BOOLEAN NOT NULL,
//	    old_domains TEXT[] NOT NULL,
//	    new_domain  TEXT NOT NULL,
//	    processed   INTEGER NOT NULL,
//	    succeeded   INTEGER NOT NULL,
//	    failed      INTEGER NOT NULL,
//	    skipped     INTEGER NOT NULL,
//	    simulated   INTEGER NOT NULL
//	);
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailmove/internal/runs"
	"mailmove/pkg/platform/sentinel"
)

// Store is a pgx-backed runs.Store.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ runs.Store = (*Store)(nil)

func (s *Store) Save(ctx context.Context, summary runs.Summary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_summaries (
			run_id, started_at, finished_at, dry_run, old_domains, new_domain,
			processed, succeeded, failed, skipped, simulated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			processed   = EXCLUDED.processed,
			succeeded   = EXCLUDED.succeeded,
			failed      = EXCLUDED.failed,
			skipped     = EXCLUDED.skipped,
			simulated   = EXCLUDED.simulated`,
		summary.RunID, summary.StartedAt, summary.FinishedAt, summary.DryRun,
		summary.OldDomains, summary.NewDomain,
		summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped, summary.Simulated,
	)
	if err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, runID string) (runs.Summary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, started_at, finished_at, dry_run, old_domains, new_domain,
		       processed, succeeded, failed, skipped, simulated
		FROM run_summaries
		WHERE run_id = $1`, runID)

	summary, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return runs.Summary{}, fmt.Errorf("run %q: %w", runID, sentinel.ErrNotFound)
		}
		return runs.Summary{}, fmt.Errorf("get run summary: %w", err)
	}
	return summary, nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]runs.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, started_at, finished_at, dry_run, old_domains, new_domain,
		       processed, succeeded, failed, skipped, simulated
		FROM run_summaries
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list run summaries: %w", err)
	}
	defer rows.Close()

	var out []runs.Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list run summaries: %w", err)
	}
	return out, nil
}

func scanSummary(row pgx.Row) (runs.Summary, error) {
	var s runs.Summary
	err := row.Scan(
		&s.RunID, &s.StartedAt, &s.FinishedAt, &s.DryRun, &s.OldDomains, &s.NewDomain,
		&s.Processed, &s.Succeeded, &s.Failed, &s.Skipped, &s.Simulated,
	)
	return s, err
}
