package taskboard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/pkg/logger"
)

// Progress cache settings
const (
	progressCacheKeyTemplate = "event:%d:progress:v1"
	progressCacheTTL         = 30 * time.Second
)

// ProgressCacheKey builds the cache key for one event's aggregate
func ProgressCacheKey(eventID int64) string {
	return fmt.Sprintf(progressCacheKeyTemplate, eventID)
}

// ProgressSource computes the per-list aggregates in one store roundtrip
type ProgressSource interface {
	Progress(ctx context.Context, eventID int64) ([]*domain.ListProgress, error)
}

// ProgressEngine memoizes the derived board progress in the cache. The cache
// is advisory: failures fall back to recomputation and are never surfaced.
type ProgressEngine struct {
	source ProgressSource
	cache  ProgressCache
	now    func() time.Time
}

// NewProgressEngine creates a progress engine over the given source
func NewProgressEngine(source ProgressSource, cache ProgressCache) *ProgressEngine {
	return &ProgressEngine{
		source: source,
		cache:  cache,
		now:    time.Now,
	}
}

// Get returns the cached aggregate or computes and stores a fresh one
func (e *ProgressEngine) Get(ctx context.Context, eventID int64) (*domain.EventProgress, error) {
	key := ProgressCacheKey(eventID)
	if raw, ok := e.cache.Get(ctx, key); ok {
		progress := &domain.EventProgress{}
		if err := json.Unmarshal(raw, progress); err == nil {
			return progress, nil
		}
		logger.Warn("Discarding malformed cached progress", zap.String("key", key))
	}

	progress, err := e.Compute(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(progress); err == nil {
		e.cache.Set(ctx, key, raw, progressCacheTTL)
	}
	return progress, nil
}

// Compute derives the aggregate from the store
func (e *ProgressEngine) Compute(ctx context.Context, eventID int64) (*domain.EventProgress, error) {
	byList, err := e.source.Progress(ctx, eventID)
	if err != nil {
		return nil, err
	}

	progress := &domain.EventProgress{
		EventID:     eventID,
		ByList:      byList,
		GeneratedAt: e.now().UTC().Format("2006-01-02T15:04:05.000000Z"),
		TTLSeconds:  int(progressCacheTTL.Seconds()),
	}
	for _, entry := range byList {
		progress.TotalTasks += entry.Total
		progress.Counts.Todo += entry.Todo
		progress.Counts.Doing += entry.Doing
		progress.Counts.Done += entry.Done
	}
	if progress.TotalTasks > 0 {
		ratio := float64(progress.Counts.Done) / float64(progress.TotalTasks) * 100
		progress.PercentDone = math.Round(ratio*10) / 10
	}
	return progress, nil
}

// Invalidate evicts the cached aggregate for one event
func (e *ProgressEngine) Invalidate(ctx context.Context, eventID int64) {
	e.cache.Delete(ctx, ProgressCacheKey(eventID))
}
