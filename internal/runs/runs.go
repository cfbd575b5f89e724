// Package runs keeps the history of migration runs: what was attempted,
// under which domain scope, and how it ended.
package runs

import (
	"context"
	"time"
)

// Summary is the durable record of one run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	OldDomains []string
	NewDomain  string
	Processed  int
	Succeeded  int
	Failed     int
	Skipped    int
	Simulated  int
}

// Store persists run summaries.
type Store interface {
	Save(ctx context.Context, summary Summary) error
	Get(ctx context.Context, runID string) (Summary, error)
	Recent(ctx context.Context, limit int) ([]Summary, error)
}
