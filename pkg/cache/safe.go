package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eventplanner-backend/pkg/logger"
)

// FallbackNotifier is invoked whenever the primary backend fails and the
// in-process fallback serves the call instead. Used for metrics.
type FallbackNotifier func()

// SafeStore wraps a primary Store with an in-process fallback. Backend
// failures are logged and absorbed; callers never see a cache error.
type SafeStore struct {
	primary  Store
	fallback *MemoryStore
	onFall   FallbackNotifier
}

// NewSafeStore creates a failure-tolerant cache around primary. primary may
// be nil, in which case the in-process store serves everything.
func NewSafeStore(primary Store, onFallback FallbackNotifier) *SafeStore {
	return &SafeStore{
		primary:  primary,
		fallback: NewMemoryStore(4096),
		onFall:   onFallback,
	}
}

// Get retrieves a value, consulting the fallback when the primary errors
func (s *SafeStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.primary != nil {
		value, ok, err := s.primary.Get(ctx, key)
		if err == nil {
			return value, ok
		}
		s.noteFallback("get", key, err)
	}
	value, ok, _ := s.fallback.Get(ctx, key)
	return value, ok
}

// Set stores a value; a failing primary is shadowed by the fallback
func (s *SafeStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if s.primary != nil {
		err := s.primary.Set(ctx, key, value, ttl)
		if err == nil {
			// A stale fallback entry must not outlive a fresh primary one.
			_ = s.fallback.Delete(ctx, key)
			return
		}
		s.noteFallback("set", key, err)
	}
	_ = s.fallback.Set(ctx, key, value, ttl)
}

// Delete evicts a key from both backends
func (s *SafeStore) Delete(ctx context.Context, key string) {
	if s.primary != nil {
		if err := s.primary.Delete(ctx, key); err != nil {
			s.noteFallback("delete", key, err)
		}
	}
	_ = s.fallback.Delete(ctx, key)
}

func (s *SafeStore) noteFallback(op, key string, err error) {
	if s.onFall != nil {
		s.onFall()
	}
	logger.Warn("Cache backend failed, using in-process fallback",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
}
