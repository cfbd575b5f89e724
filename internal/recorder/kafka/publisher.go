// Package kafka streams change records to a topic so downstream consumers
// (reconciliation, compliance) see migrations as they happen.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mailmove/internal/migration/models"
	"mailmove/internal/recorder"
)

// Producer is the broker-facing surface the publisher needs; satisfied by
// platform/kafka.Producer.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// Publisher appends change records to a Kafka topic, keyed by principal name
// so per-identity history stays in one partition.
type Publisher struct {
	producer Producer
	topic    string
}

func NewPublisher(producer Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

var _ recorder.Recorder = (*Publisher)(nil)

// payload is the wire form. Field names are part of the consumer contract.
type payload struct {
	Timestamp     string   `json:"timestamp"`
	RunID         string   `json:"runId"`
	IdentityKind  string   `json:"identityKind"`
	PrincipalName string   `json:"principalName"`
	OldPrimary    string   `json:"oldPrimary,omitempty"`
	NewPrimary    string   `json:"newPrimary,omitempty"`
	Removed       []string `json:"removed,omitempty"`
	Added         []string `json:"added,omitempty"`
	RemovedCount  int      `json:"removedCount"`
	AddedCount    int      `json:"addedCount"`
	Status        string   `json:"status"`
	Error         string   `json:"error,omitempty"`
}

func (p *Publisher) Record(ctx context.Context, rec models.ChangeRecord) error {
	value, err := json.Marshal(payload{
		Timestamp:     rec.Timestamp.UTC().Format(time.RFC3339Nano),
		RunID:         rec.RunID,
		IdentityKind:  string(rec.IdentityKind),
		PrincipalName: rec.PrincipalName,
		OldPrimary:    rec.OldPrimary,
		NewPrimary:    rec.NewPrimary,
		Removed:       rec.Removed,
		Added:         rec.Added,
		RemovedCount:  rec.RemovedCount,
		AddedCount:    rec.AddedCount,
		Status:        string(rec.Status),
		Error:         rec.Err,
	})
	if err != nil {
		return fmt.Errorf("marshal change record: %w", err)
	}
	return p.producer.Produce(ctx, p.topic, []byte(rec.PrincipalName), value)
}

// RecordError is a no-op for the stream: failures already arrive as records
// with status Failed, and the error sinks are file/database concerns.
func (p *Publisher) RecordError(context.Context, string, error) error {
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
