package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmove/internal/migration/models"
)

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	err   error
}

func (f *fakeProducer) Produce(_ context.Context, topic string, key, value []byte) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func TestPublisher_Record(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(producer, "mailmove.change-records")

	rec := models.ChangeRecord{
		Timestamp:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		RunID:         "run-7",
		IdentityKind:  models.KindUserMailbox,
		PrincipalName: "ana@old.example.com",
		OldPrimary:    "ana@old.example.com",
		NewPrimary:    "ana@new.example.com",
		Removed:       []string{"SMTP:ana@old.example.com"},
		Added:         []string{"SMTP:ana@new.example.com"},
		RemovedCount:  1,
		AddedCount:    1,
		Status:        models.StatusSuccess,
	}
	require.NoError(t, pub.Record(context.Background(), rec))

	assert.Equal(t, "mailmove.change-records", producer.topic)
	assert.Equal(t, "ana@old.example.com", string(producer.key),
		"records are keyed by principal so one identity stays in one partition")

	var got map[string]any
	require.NoError(t, json.Unmarshal(producer.value, &got))
	assert.Equal(t, "2026-03-01T09:30:00Z", got["timestamp"])
	assert.Equal(t, "run-7", got["runId"])
	assert.Equal(t, "user_mailbox", got["identityKind"])
	assert.Equal(t, "Success", got["status"])
	assert.Equal(t, float64(1), got["removedCount"])
	assert.NotContains(t, got, "error", "empty error is omitted from the wire form")
}

func TestPublisher_RecordProducerFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	pub := NewPublisher(producer, "mailmove.change-records")

	err := pub.Record(context.Background(), models.ChangeRecord{PrincipalName: "x@old.example.com"})
	assert.ErrorContains(t, err, "broker down")
}

func TestPublisher_RecordErrorIsNoOp(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	pub := NewPublisher(producer, "mailmove.change-records")

	assert.NoError(t, pub.RecordError(context.Background(), "x@old.example.com", errors.New("boom")))
	assert.Empty(t, producer.topic)
}
