// Package recorder defines the change-record sink consumed by the
// orchestrator. One record is appended per processed identity; failures
// additionally produce one error line. Records are append-only and never
// mutated after being handed over.
package recorder

import (
	"context"
	"errors"

	"mailmove/internal/migration/models"
)

// Recorder is the durable sink contract.
type Recorder interface {
	Record(ctx context.Context, rec models.ChangeRecord) error
	RecordError(ctx context.Context, principalName string, failure error) error
	Close() error
}

// Multi fans a record out to every sink. All sinks are attempted even when
// earlier ones fail; the joined error is returned.
type Multi []Recorder

var _ Recorder = Multi{}

func (m Multi) Record(ctx context.Context, rec models.ChangeRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) RecordError(ctx context.Context, principalName string, failure error) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordError(ctx, principalName, failure); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
