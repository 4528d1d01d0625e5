package refcache

import (
	"context"
	"time"

	"github.com/wonny/catalyst/pkg/redis"
)

// RedisStore keeps entries in Redis through the shared cache helper.
// Retention is independent of the staleness policy so stale values stay available.
type RedisStore struct {
	cache     *redis.Cache
	retention time.Duration
}

type redisEnvelope struct {
	StoredAt time.Time `json:"stored_at"`
	Value    []byte    `json:"value"`
}

// NewRedisStore wraps cache. retention <= 0 selects one week.
func NewRedisStore(cache *redis.Cache, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = redis.TTLWeekly
	}
	return &RedisStore{cache: cache, retention: retention}
}

// Get returns nil, nil on a miss or when Redis is disabled
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	var env redisEnvelope
	found, err := s.cache.Get(ctx, key, &env)
	if err != nil || !found {
		return nil, err
	}
	return &Entry{Value: env.Value, StoredAt: env.StoredAt}, nil
}

// Set stores value with the current time
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.cache.Set(ctx, key, redisEnvelope{StoredAt: time.Now(), Value: value}, s.retention)
}
