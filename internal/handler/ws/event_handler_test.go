package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/internal/realtime"
	"eventplanner-backend/pkg/logger"
	"eventplanner-backend/pkg/metrics"
)

func init() {
	logger.InitDefault()
}

// newPumpClient wires a client to an in-process broker without a socket so
// the broker pump can be exercised directly.
func newPumpClient(t *testing.T, broker realtime.Broker, hub *realtime.Hub, maxSize int, userID int64) *client {
	t.Helper()
	gateway := NewGateway(broker, hub, nil, nil, maxSize, metrics.NewMetrics("test"))
	return &client{
		gateway:  gateway,
		send:     make(chan []byte, sendBuffer),
		sub:      broker.Subscribe(realtime.GroupName(1)),
		eventID:  1,
		userID:   userID,
		userName: "Tester",
	}
}

func readFrame(t *testing.T, c *client) *realtime.Frame {
	t.Helper()
	select {
	case data := <-c.send:
		frame := &realtime.Frame{}
		require.NoError(t, json.Unmarshal(data, frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestBrokerPumpForwardsBroadcasts(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	defer broker.Close()
	hub := realtime.NewHub(broker, nil)

	cl := newPumpClient(t, broker, hub, 64*1024, 10)
	go cl.brokerPump()
	defer broker.Unsubscribe(cl.sub)

	hub.PublishEvent(context.Background(), 1, "chat.message", map[string]any{"text": "hi"}, nil)

	frame := readFrame(t, cl)
	assert.Equal(t, "chat.message", frame.Type)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "hi", payload["text"])
}

func TestBrokerPumpSuppressesOwnTyping(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	defer broker.Close()
	hub := realtime.NewHub(broker, nil)

	cl := newPumpClient(t, broker, hub, 64*1024, 10)
	go cl.brokerPump()
	defer broker.Unsubscribe(cl.sub)

	self := int64(10)
	other := int64(20)
	hub.PublishEvent(context.Background(), 1, "chat.typing", map[string]any{"user_id": self}, &self)
	hub.PublishEvent(context.Background(), 1, "chat.typing", map[string]any{"user_id": other}, &other)

	// Only the foreign typing indicator arrives.
	frame := readFrame(t, cl)
	assert.Equal(t, "chat.typing", frame.Type)
	var payload map[string]int64
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, other, payload["user_id"])

	select {
	case data := <-cl.send:
		t.Fatalf("unexpected second frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerPumpDoesNotSuppressOwnChatMessage(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	defer broker.Close()
	hub := realtime.NewHub(broker, nil)

	cl := newPumpClient(t, broker, hub, 64*1024, 10)
	go cl.brokerPump()
	defer broker.Unsubscribe(cl.sub)

	self := int64(10)
	hub.PublishEvent(context.Background(), 1, "chat.message", map[string]any{"author": self}, &self)

	frame := readFrame(t, cl)
	assert.Equal(t, "chat.message", frame.Type)
}

func TestBrokerPumpDropsOversizeFrames(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	defer broker.Close()
	hub := realtime.NewHub(broker, nil)

	cl := newPumpClient(t, broker, hub, 128, 10)
	go cl.brokerPump()
	defer broker.Unsubscribe(cl.sub)

	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'a'
	}
	hub.PublishEvent(context.Background(), 1, "task.updated", map[string]any{"blob": string(big)}, nil)
	hub.PublishEvent(context.Background(), 1, "task.updated", map[string]any{"id": 1}, nil)

	// The oversize frame never arrives; the small one does.
	frame := readFrame(t, cl)
	var payload map[string]int
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, 1, payload["id"])
}

func TestEnqueueNewestWins(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	defer broker.Close()

	cl := newPumpClient(t, broker, realtime.NewHub(broker, nil), 64*1024, 10)
	defer broker.Unsubscribe(cl.sub)

	for i := 0; i < sendBuffer+5; i++ {
		payload, _ := json.Marshal(i)
		cl.enqueue(payload)
	}

	// The buffer holds the newest frames; the very last enqueue survived.
	var last int
	for len(cl.send) > 0 {
		require.NoError(t, json.Unmarshal(<-cl.send, &last))
	}
	assert.Equal(t, sendBuffer+4, last)
}

func TestTypingRateLimit(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	defer broker.Close()
	hub := realtime.NewHub(broker, nil)

	cl := newPumpClient(t, broker, hub, 64*1024, 10)
	witness := broker.Subscribe(realtime.GroupName(1))

	payload, _ := json.Marshal(map[string]any{"event_id": 1})
	cl.handleTyping(payload)
	cl.handleTyping(payload) // inside the one-second window, dropped

	received := 0
	timeout := time.After(200 * time.Millisecond)
drain:
	for {
		select {
		case <-witness.C:
			received++
		case <-timeout:
			break drain
		}
	}
	assert.Equal(t, 1, received)
}

func TestTypingMismatchedEventDropped(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	defer broker.Close()
	hub := realtime.NewHub(broker, nil)

	cl := newPumpClient(t, broker, hub, 64*1024, 10)
	witness := broker.Subscribe(realtime.GroupName(1))

	payload, _ := json.Marshal(map[string]any{"event_id": 999})
	cl.handleTyping(payload)

	select {
	case data := <-witness.C:
		t.Fatalf("mismatched typing frame was broadcast: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}
