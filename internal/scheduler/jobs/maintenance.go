package jobs

import (
	"context"
	"time"

	"github.com/wonny/catalyst/pkg/logger"
)

// Pruner removes old cache entries (refcache.FileStore)
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}

// CacheCleanupJob removes reference cache files past their retention
type CacheCleanupJob struct {
	cache     Pruner
	retention time.Duration
	logger    *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(cache Pruner, retention time.Duration, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache:     cache,
		retention: retention,
		logger:    log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule (every day at 03:00)
func (j *CacheCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache cleanup")

	count, err := j.cache.Prune(ctx, j.retention)
	if err != nil {
		return err
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Cache cleanup completed")
	}

	return nil
}
