package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"eventplanner-backend/pkg/logger"
)

// MemoryBroker is the in-process pub/sub fan-out used in development, tests
// and single-node deployments.
type MemoryBroker struct {
	mu     sync.RWMutex
	groups map[string]map[*Subscription]bool
	closed bool
}

// NewMemoryBroker creates an in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		groups: make(map[string]map[*Subscription]bool),
	}
}

// Subscribe registers a new consumer for the group
func (b *MemoryBroker) Subscribe(group string) *Subscription {
	sub := &Subscription{
		Group: group,
		C:     make(chan []byte, subscriptionBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.C)
		return sub
	}
	if b.groups[group] == nil {
		b.groups[group] = make(map[*Subscription]bool)
	}
	b.groups[group][sub] = true
	return sub
}

// Unsubscribe removes the consumer and closes its channel
func (b *MemoryBroker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.groups[sub.Group]
	if !ok {
		return
	}
	if _, exists := subs[sub]; !exists {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.groups, sub.Group)
	}
	close(sub.C)
	sub.Close()
}

// Publish fans data out to every current subscriber of the group. Delivery
// is non-blocking; slow subscribers lose their oldest buffered message.
func (b *MemoryBroker) Publish(_ context.Context, group string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.groups[group] {
		if offer(sub, data) {
			logger.Debug("Subscriber buffer overflow, oldest message dropped",
				zap.String("group", group))
		}
	}
	return nil
}

// Close tears down all subscriptions
func (b *MemoryBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for group, subs := range b.groups {
		for sub := range subs {
			close(sub.C)
		}
		delete(b.groups, group)
	}
}
