package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/pkg/logger"
)

func init() {
	logger.InitDefault()
}

func receive(t *testing.T, sub *Subscription) []byte {
	t.Helper()
	select {
	case data := <-sub.C:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestMemoryBrokerFanOut(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	sub1 := broker.Subscribe("event:1")
	sub2 := broker.Subscribe("event:1")
	other := broker.Subscribe("event:2")

	require.NoError(t, broker.Publish(context.Background(), "event:1", []byte("hello")))

	assert.Equal(t, []byte("hello"), receive(t, sub1))
	assert.Equal(t, []byte("hello"), receive(t, sub2))

	select {
	case data := <-other.C:
		t.Fatalf("unexpected cross-group delivery: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBrokerPublishOrdering(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	sub := broker.Subscribe("event:1")
	for i := 0; i < 10; i++ {
		payload, _ := json.Marshal(i)
		require.NoError(t, broker.Publish(context.Background(), "event:1", payload))
	}

	for i := 0; i < 10; i++ {
		var got int
		require.NoError(t, json.Unmarshal(receive(t, sub), &got))
		assert.Equal(t, i, got)
	}
}

func TestMemoryBrokerUnsubscribeClosesChannel(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	sub := broker.Subscribe("event:1")
	broker.Unsubscribe(sub)

	_, open := <-sub.C
	assert.False(t, open)

	// Unsubscribing twice must not panic.
	broker.Unsubscribe(sub)

	// Publishing to the emptied group is a no-op.
	assert.NoError(t, broker.Publish(context.Background(), "event:1", []byte("x")))
}

func TestMemoryBrokerOverflowNewestWins(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	sub := broker.Subscribe("event:1")
	total := subscriptionBuffer + 10
	for i := 0; i < total; i++ {
		payload, _ := json.Marshal(i)
		require.NoError(t, broker.Publish(context.Background(), "event:1", payload))
	}

	// The oldest messages were discarded; the last message must still be
	// the final publish.
	var last int
	for i := 0; i < subscriptionBuffer; i++ {
		require.NoError(t, json.Unmarshal(receive(t, sub), &last))
	}
	assert.Equal(t, total-1, last)
}

type failingBroker struct{}

func (f *failingBroker) Subscribe(group string) *Subscription { return nil }
func (f *failingBroker) Unsubscribe(sub *Subscription)        {}
func (f *failingBroker) Publish(context.Context, string, []byte) error {
	return errors.New("broker down")
}
func (f *failingBroker) Close() {}

func TestHubEnvelopeShape(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	hub := NewHub(broker, nil)

	sub := broker.Subscribe(GroupName(7))
	senderID := int64(42)
	hub.PublishEvent(context.Background(), 7, "chat.typing", map[string]any{"event_id": 7}, &senderID)

	var envelope Broadcast
	require.NoError(t, json.Unmarshal(receive(t, sub), &envelope))
	assert.Equal(t, "broadcast", envelope.Type)
	assert.Equal(t, "chat.typing", envelope.MessageType)
	require.NotNil(t, envelope.SenderID)
	assert.Equal(t, int64(42), *envelope.SenderID)

	var payload map[string]int64
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(7), payload["event_id"])
}

func TestHubSwallowsBrokerFailure(t *testing.T) {
	failures := 0
	hub := NewHub(&failingBroker{}, func() { failures++ })

	assert.NotPanics(t, func() {
		hub.PublishEvent(context.Background(), 1, "task.updated", map[string]any{"id": 1}, nil)
	})
	assert.Equal(t, 1, failures)
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "event:15", GroupName(15))
}
