package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"eventplanner-backend/pkg/logger"
)

// RedisBroker carries broadcast groups over Redis pub/sub channels so that
// several API instances share one fabric. Channel names are the group names.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker creates a Redis-backed broker
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Subscribe opens a Redis subscription for the group and pumps its messages
// into the subscription channel until Unsubscribe
func (b *RedisBroker) Subscribe(group string) *Subscription {
	pubsub := b.client.Subscribe(context.Background(), group)
	sub := &Subscription{
		Group:  group,
		C:      make(chan []byte, subscriptionBuffer),
		cancel: func() { _ = pubsub.Close() },
	}

	go func() {
		defer close(sub.C)
		for msg := range pubsub.Channel() {
			if offer(sub, []byte(msg.Payload)) {
				logger.Debug("Subscriber buffer overflow, oldest message dropped",
					zap.String("group", group))
			}
		}
	}()

	return sub
}

// Unsubscribe closes the Redis subscription; the pump goroutine drains and
// closes the channel
func (b *RedisBroker) Unsubscribe(sub *Subscription) {
	sub.Close()
}

// Publish sends data to every instance subscribed to the group
func (b *RedisBroker) Publish(ctx context.Context, group string, data []byte) error {
	return b.client.Publish(ctx, group, data).Err()
}

// Close is a no-op; the shared Redis client is owned by the caller
func (b *RedisBroker) Close() {}
