package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"eventplanner-backend/pkg/logger"
)

// PublishFailureNotifier is invoked when a broadcast is dropped because the
// broker failed. Used for metrics.
type PublishFailureNotifier func()

// Hub is the single process-wide publish surface used by the services.
// Publishing is best effort: a broker failure is logged and dropped and
// never aborts the committed database mutation that produced it.
type Hub struct {
	broker Broker
	onFail PublishFailureNotifier
}

// NewHub wraps a broker into the service-facing publish adapter
func NewHub(broker Broker, onFail PublishFailureNotifier) *Hub {
	return &Hub{broker: broker, onFail: onFail}
}

// Broker exposes the underlying broker for the WebSocket gateway
func (h *Hub) Broker() Broker {
	return h.broker
}

// PublishEvent broadcasts one observable change to the event's group.
// senderID is carried for self-echo suppression of typing indicators.
func (h *Hub) PublishEvent(ctx context.Context, eventID int64, messageType string, payload any, senderID *int64) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Failed to marshal broadcast payload",
			zap.Int64("event_id", eventID),
			zap.String("message_type", messageType),
			zap.Error(err))
		return
	}

	envelope := Broadcast{
		Type:        "broadcast",
		MessageType: messageType,
		Payload:     raw,
		SenderID:    senderID,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		logger.Warn("Failed to marshal broadcast envelope",
			zap.Int64("event_id", eventID),
			zap.String("message_type", messageType),
			zap.Error(err))
		return
	}

	if err := h.broker.Publish(ctx, GroupName(eventID), data); err != nil {
		if h.onFail != nil {
			h.onFail()
		}
		logger.Warn("Broker publish failed, broadcast dropped",
			zap.Int64("event_id", eventID),
			zap.String("message_type", messageType),
			zap.Error(err))
	}
}
