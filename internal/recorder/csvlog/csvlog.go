// Package csvlog writes the per-run change log as CSV plus a parallel
// plain-text error sink, one line per failed identity.
package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"mailmove/internal/migration/models"
	"mailmove/internal/recorder"
)

var header = []string{
	"timestamp", "run_id", "identity_kind", "principal_name",
	"old_primary", "new_primary", "removed_count", "added_count", "status", "error",
}

// Clock lets tests pin error-line timestamps.
type Clock func() time.Time

// Sink appends change records to <dir>/changes-<runID>.csv and failures to
// <dir>/errors-<runID>.log. Every record is flushed immediately; the log must
// survive a crashed run.
type Sink struct {
	mu      sync.Mutex
	csvFile *os.File
	writer  *csv.Writer
	errFile *os.File
	clock   Clock
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(s *Sink) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(dir, runID string, opts ...Option) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	csvFile, err := os.OpenFile(filepath.Join(dir, "changes-"+runID+".csv"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open change log: %w", err)
	}
	errFile, err := os.OpenFile(filepath.Join(dir, "errors-"+runID+".log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = csvFile.Close()
		return nil, fmt.Errorf("open error log: %w", err)
	}

	s := &Sink{csvFile: csvFile, writer: csv.NewWriter(csvFile), errFile: errFile, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	info, err := csvFile.Stat()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("stat change log: %w", err)
	}
	if info.Size() == 0 {
		if err := s.writer.Write(header); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("write change log header: %w", err)
		}
		s.writer.Flush()
	}
	return s, nil
}

var _ recorder.Recorder = (*Sink)(nil)

func (s *Sink) Record(_ context.Context, rec models.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.RunID,
		string(rec.IdentityKind),
		rec.PrincipalName,
		rec.OldPrimary,
		rec.NewPrimary,
		strconv.Itoa(rec.RemovedCount),
		strconv.Itoa(rec.AddedCount),
		string(rec.Status),
		rec.Err,
	}
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("append change record: %w", err)
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *Sink) RecordError(_ context.Context, principalName string, failure error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("%s %s: %v\n", s.clock().UTC().Format(time.RFC3339), principalName, failure)
	if _, err := s.errFile.WriteString(line); err != nil {
		return fmt.Errorf("append error line: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	err := s.writer.Error()
	if cerr := s.csvFile.Close(); err == nil {
		err = cerr
	}
	if cerr := s.errFile.Close(); err == nil {
		err = cerr
	}
	return err
}
