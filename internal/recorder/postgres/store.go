// Package postgres persists change records durably. The CSV sink is the
// operator-facing artifact; this store is what downstream reconciliation
// queries.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mailmove/internal/migration/models"
	"mailmove/internal/recorder"
)

// Schema is created out of band:
//
//	CREATE TABLE change_records (
//	    id             UUID PRIMARY KEY,
//	    recorded_at    TIMESTAMPTZ NOT NULL,
//	    run_id         TEXT NOT NULL,
//	    identity_kind  TEXT NOT NULL,
//	    principal_name TEXT NOT NULL,
//	    old_primary    TEXT NOT NULL DEFAULT '',
//	    new_primary    TEXT NOT NULL DEFAULT '',
//	    removed        TEXT[] NOT NULL DEFAULT '{}',
//	    added          TEXT[] NOT NULL DEFAULT '{}',
//	    status         TEXT NOT NULL,
//	    error          TEXT NOT NULL DEFAULT ''
//	);
//	CREATE TABLE run_errors (
//	    id             UUID PRIMARY KEY,
//	    recorded_at    TIMESTAMPTZ NOT NULL,
//	    principal_name TEXT NOT NULL,
//	    error          TEXT NOT NULL
//	);

// Clock lets tests pin error-line timestamps.
type Clock func() time.Time

// Store appends change records and error lines to PostgreSQL.
type Store struct {
	db    *sql.DB
	clock Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ recorder.Recorder = (*Store)(nil)

func (s *Store) Record(ctx context.Context, rec models.ChangeRecord) error {
	query := `
		INSERT INTO change_records (
			id, recorded_at, run_id, identity_kind, principal_name,
			old_primary, new_primary, removed, added, status, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		rec.Timestamp,
		rec.RunID,
		string(rec.IdentityKind),
		rec.PrincipalName,
		rec.OldPrimary,
		rec.NewPrimary,
		pq.Array(rec.Removed),
		pq.Array(rec.Added),
		string(rec.Status),
		rec.Err,
	)
	if err != nil {
		return fmt.Errorf("insert change record: %w", err)
	}
	return nil
}

func (s *Store) RecordError(ctx context.Context, principalName string, failure error) error {
	query := `
		INSERT INTO run_errors (id, recorded_at, principal_name, error)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, uuid.New(), s.clock(), principalName, failure.Error())
	if err != nil {
		return fmt.Errorf("insert run error: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error {
	return nil
}

// ByRun returns a run's records ordered by time of recording. Used by the
// admin surface and reconciliation tooling.
func (s *Store) ByRun(ctx context.Context, runID string) ([]models.ChangeRecord, error) {
	query := `
		SELECT recorded_at, run_id, identity_kind, principal_name,
		       old_primary, new_primary, removed, added, status, error
		FROM change_records
		WHERE run_id = $1
		ORDER BY recorded_at, principal_name
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query change records: %w", err)
	}
	defer rows.Close()

	var out []models.ChangeRecord
	for rows.Next() {
		var rec models.ChangeRecord
		var kind, status string
		if err := rows.Scan(
			&rec.Timestamp, &rec.RunID, &kind, &rec.PrincipalName,
			&rec.OldPrimary, &rec.NewPrimary,
			pq.Array(&rec.Removed), pq.Array(&rec.Added),
			&status, &rec.Err,
		); err != nil {
			return nil, fmt.Errorf("scan change record: %w", err)
		}
		rec.IdentityKind = models.IdentityKind(kind)
		rec.Status = models.Status(status)
		rec.RemovedCount = len(rec.Removed)
		rec.AddedCount = len(rec.Added)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change records: %w", err)
	}
	return out, nil
}
