package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/catalyst/pkg/logger"
)

// TickerSyncer refreshes the cached ticker directory (sec.Client)
type TickerSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// TickerSyncJob refreshes the SEC ticker directory daily
// ⭐ SSOT: 티커 디렉터리 갱신 스케줄은 이 Job에서만
type TickerSyncJob struct {
	syncer TickerSyncer
	logger *logger.Logger
}

// NewTickerSyncJob creates a new ticker sync job
func NewTickerSyncJob(syncer TickerSyncer, log *logger.Logger) *TickerSyncJob {
	return &TickerSyncJob{
		syncer: syncer,
		logger: log,
	}
}

// Name returns the job name
func (j *TickerSyncJob) Name() string {
	return "ticker_sync"
}

// Schedule returns the cron schedule (every day at 06:00)
func (j *TickerSyncJob) Schedule() string {
	return "0 0 6 * * *"
}

// Run executes the ticker sync
func (j *TickerSyncJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled ticker sync")

	n, err := j.syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync ticker directory: %w", err)
	}

	j.logger.WithField("tickers", n).Info("Ticker directory refreshed")
	return nil
}
