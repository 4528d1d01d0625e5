package refcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/catalyst/pkg/logger"
)

// Entry is a cached provider response
type Entry struct {
	Value    []byte
	StoredAt time.Time
}

// Age returns how long ago the entry was stored
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Store is a key → bytes cache keyed by request identity.
// Writes for the same key are idempotent; last writer wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error) // nil, nil on miss
	Set(ctx context.Context, key string, value []byte) error
}

// Fetcher produces a fresh value for a key
type Fetcher func(ctx context.Context) ([]byte, error)

// Cache applies the staleness policy on top of a Store
// ⭐ SSOT: 외부 응답 캐시 정책 (max-age + stale-on-error)
type Cache struct {
	store  Store
	maxAge time.Duration // 0 = never stale
	now    func() time.Time
	logger *logger.Logger
}

// New creates a cache. A nil store disables caching.
func New(store Store, maxAge time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
		logger: log.WithField("module", "refcache"),
	}
}

// GetOrFetch returns a fresh cached value, or fetches and stores a new one.
// If the fetch fails and a stale value exists, the stale value is served.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch Fetcher) ([]byte, error) {
	if c == nil || c.store == nil {
		return fetch(ctx)
	}

	log := c.logger.WithField("key", key)

	cached, err := c.store.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("cache read failed")
		cached = nil
	}

	if cached != nil && !c.stale(cached) {
		log.Debug("cache hit")
		return cached.Value, nil
	}

	value, fetchErr := fetch(ctx)
	if fetchErr != nil {
		if cached != nil && !errors.Is(fetchErr, context.Canceled) {
			log.WithError(fetchErr).WithField("age", cached.Age(c.now()).String()).
				Warn("refetch failed, serving stale value")
			return cached.Value, nil
		}
		return nil, fetchErr
	}

	if err := c.store.Set(ctx, key, value); err != nil {
		log.WithError(err).Warn("cache write failed")
	}

	return value, nil
}

// Refresh fetches and stores a value regardless of age
func (c *Cache) Refresh(ctx context.Context, key string, fetch Fetcher) ([]byte, error) {
	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if c != nil && c.store != nil {
		if err := c.store.Set(ctx, key, value); err != nil {
			return nil, fmt.Errorf("store %s: %w", key, err)
		}
	}
	return value, nil
}

func (c *Cache) stale(e *Entry) bool {
	return c.maxAge > 0 && e.Age(c.now()) > c.maxAge
}
