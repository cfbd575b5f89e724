//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"mailmove/internal/migration/models"
	platformkafka "mailmove/internal/platform/kafka"
	recorderkafka "mailmove/internal/recorder/kafka"
	"mailmove/pkg/testutil/containers"
)

func TestPublisher_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redpanda := containers.NewRedpandaContainer(t)
	ctx := context.Background()
	const topic = "mailmove.change-records.test"

	producer, err := platformkafka.NewProducer(platformkafka.Config{
		Brokers:  []string{redpanda.Broker},
		ClientID: "mailmove-test",
	})
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	require.NoError(t, producer.EnsureTopic(ctx, topic, 1))
	// EnsureTopic tolerates the topic already existing.
	require.NoError(t, producer.EnsureTopic(ctx, topic, 1))

	pub := recorderkafka.NewPublisher(producer, topic)
	rec := models.ChangeRecord{
		Timestamp:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		RunID:         "run-int-k",
		IdentityKind:  models.KindUserMailbox,
		PrincipalName: "ana@old.example.com",
		NewPrimary:    "ana@new.example.com",
		Added:         []string{"SMTP:ana@new.example.com"},
		AddedCount:    1,
		Status:        models.StatusSuccess,
	}
	require.NoError(t, pub.Record(ctx, rec))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "ana@old.example.com", string(records[0].Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, "run-int-k", got["runId"])
	require.Equal(t, "Success", got["status"])
	require.Equal(t, "ana@new.example.com", got["newPrimary"])
}
