package cache

import (
	"context"
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

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore(0)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 30*time.Second))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	now = now.Add(31 * time.Second)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Size(), "expired entry is dropped on read")
}

func TestMemoryStoreEviction(t *testing.T) {
	store := NewMemoryStore(2)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Set(ctx, "a", []byte("1"), time.Minute)
	now = now.Add(time.Second)
	_ = store.Set(ctx, "b", []byte("2"), time.Minute)
	now = now.Add(time.Second)
	_ = store.Set(ctx, "c", []byte("3"), time.Minute)

	assert.Equal(t, 2, store.Size())
	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok, "oldest entry evicted first")
	_, ok, _ = store.Get(ctx, "c")
	assert.True(t, ok)
}

type brokenStore struct{}

func (b *brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (b *brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (b *brokenStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestSafeStoreFallsBack(t *testing.T) {
	fallbacks := 0
	store := NewSafeStore(&brokenStore{}, func() { fallbacks++ })
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)
	value, ok := store.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)
	assert.Greater(t, fallbacks, 0)

	store.Delete(ctx, "k")
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestSafeStoreWithoutPrimary(t *testing.T) {
	store := NewSafeStore(nil, nil)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)
	value, ok := store.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestSafeStorePrefersHealthyPrimary(t *testing.T) {
	primary := NewMemoryStore(0)
	store := NewSafeStore(primary, nil)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)

	value, ok, err := primary.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)
	assert.Equal(t, 0, store.fallback.Size(), "fallback stays empty while the primary works")
}
