//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"agenda/internal/audit"
	"agenda/pkg/testutil/containers"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redpanda := containers.NewRedpandaContainer(t)
	const topic = "agenda.contact-audit.test"

	pub, err := audit.NewKafkaPublisher(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	defer pub.Close()

	want := audit.Event{
		ID:        "evt-1",
		Action:    audit.ActionContactCreated,
		ContactID: "id-1",
		Pais:      "Spain",
		At:        time.Now().UTC().Truncate(time.Second),
		RequestID: "req-1",
	}
	require.NoError(t, pub.Emit(ctx, want))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "id-1", string(records[0].Key), "events are keyed by contact id")

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, want.Action, got.Action)
	assert.Equal(t, want.ContactID, got.ContactID)
	assert.Equal(t, want.Pais, got.Pais)
	assert.Equal(t, want.RequestID, got.RequestID)
}

func TestKafkaPublisherTopicAlreadyExists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redpanda := containers.NewRedpandaContainer(t)
	const topic = "agenda.contact-audit.existing"

	first, err := audit.NewKafkaPublisher(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	first.Close()

	// Reconnecting against an existing topic must not fail.
	second, err := audit.NewKafkaPublisher(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	second.Close()
}
