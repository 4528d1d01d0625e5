package refcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/catalyst/pkg/config"
	"github.com/wonny/catalyst/pkg/logger"
	"github.com/wonny/catalyst/pkg/redis"
)

func counter(value string, err error) (Fetcher, *int) {
	calls := 0
	return func(ctx context.Context) ([]byte, error) {
		calls++
		if err != nil {
			return nil, err
		}
		return []byte(value), nil
	}, &calls
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	ctx := context.Background()

	entry, err := store.Get(ctx, "sec:tickers")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, store.Set(ctx, "sec:tickers", []byte(`{"0":{}}`)))

	entry, err = store.Get(ctx, "sec:tickers")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, `{"0":{}}`, string(entry.Value))
	assert.WithinDuration(t, time.Now(), entry.StoredAt, time.Minute)

	_, err = os.Stat(filepath.Join(store.Dir(), "sec_tickers.cache"))
	assert.NoError(t, err)
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Set(ctx, "stooq:daily:ZZZ", []byte("same content")))
		}()
	}
	wg.Wait()

	entry, err := store.Get(ctx, "stooq:daily:ZZZ")
	require.NoError(t, err)
	assert.Equal(t, "same content", string(entry.Value))

	files, err := filepath.Glob(filepath.Join(store.Dir(), ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCache_HitAndMiss(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	c := New(store, time.Hour, logger.Nop())
	ctx := context.Background()

	fetch, calls := counter("v1", nil)

	got, err := c.GetOrFetch(ctx, "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	got, err = c.GetOrFetch(ctx, "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
	assert.Equal(t, 1, *calls)
}

func TestCache_StaleRefetch(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	c := New(store, time.Hour, logger.Nop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("old")))
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	fetch, calls := counter("new", nil)
	got, err := c.GetOrFetch(ctx, "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	assert.Equal(t, 1, *calls)
}

func TestCache_StaleOnError(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	c := New(store, time.Hour, logger.Nop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("old")))
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	fetch, _ := counter("", errors.New("503"))
	got, err := c.GetOrFetch(ctx, "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestCache_MissAndError(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	c := New(store, time.Hour, logger.Nop())

	fetch, _ := counter("", errors.New("boom"))
	_, err = c.GetOrFetch(context.Background(), "k", fetch)
	assert.EqualError(t, err, "boom")
}

func TestCache_NilStore(t *testing.T) {
	c := New(nil, time.Hour, logger.Nop())
	fetch, calls := counter("v", nil)

	for i := 0; i < 2; i++ {
		_, err := c.GetOrFetch(context.Background(), "k", fetch)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, *calls)
}

func TestCache_Refresh(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	c := New(store, 0, logger.Nop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("old")))

	fetch, _ := counter("new", nil)
	got, err := c.Refresh(ctx, "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", string(entry.Value))
}

func TestRedisStore(t *testing.T) {
	if os.Getenv("REDIS_TEST_ENABLED") != "true" {
		t.Skip("REDIS_TEST_ENABLED not set, skipping integration test")
	}

	client, err := redis.New(context.Background(), &config.Config{Redis: config.RedisConfig{Host: "localhost", Port: "6379", Enabled: true}})
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(redis.NewCache(client, fmt.Sprintf("test-%d", time.Now().UnixNano())), time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("value")))

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "value", string(entry.Value))
}

func TestRedisStore_Disabled(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	store := NewRedisStore(redis.NewCache(client, "test"), 0)

	entry, err := store.Get(context.Background(), "k")
	assert.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, store.Set(context.Background(), "k", []byte("v")))
}

func TestFileStore_Prune(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "old", []byte("a")))
	require.NoError(t, store.Set(ctx, "fresh", []byte("b")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.path("old"), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "notes.txt"), past, past))

	removed, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entry, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, entry)

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}
