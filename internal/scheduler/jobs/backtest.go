package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/brain"
	"github.com/wonny/catalyst/pkg/logger"
)

// DefaultBacktestSchedule runs after the US close on weekdays (server local time)
const DefaultBacktestSchedule = "0 30 21 * * 1-5"

// RunFunc executes one backtest run of a variant
type RunFunc func(ctx context.Context, variant backtest.Variant) (*brain.RunResult, error)

// BacktestJob replays the flow file through a backtest variant
type BacktestJob struct {
	variant  backtest.Variant
	schedule string
	run      RunFunc
	logger   *logger.Logger
}

// NewBacktestJob creates a nightly backtest job. An empty schedule uses DefaultBacktestSchedule.
func NewBacktestJob(variant backtest.Variant, schedule string, run RunFunc, log *logger.Logger) *BacktestJob {
	if schedule == "" {
		schedule = DefaultBacktestSchedule
	}
	return &BacktestJob{
		variant:  variant,
		schedule: schedule,
		run:      run,
		logger:   log,
	}
}

// Name returns the job name (backtest_catalyst, backtest_no_news)
func (j *BacktestJob) Name() string {
	return "backtest_" + strings.ReplaceAll(string(j.variant), "-", "_")
}

// Schedule returns the cron schedule
func (j *BacktestJob) Schedule() string {
	return j.schedule
}

// Run executes the backtest
func (j *BacktestJob) Run(ctx context.Context) error {
	j.logger.WithField("variant", j.variant).Info("Starting scheduled backtest")

	result, err := j.run(ctx, j.variant)
	if err != nil {
		return fmt.Errorf("backtest %s: %w", j.variant, err)
	}

	summary := result.Backtest.Summary
	j.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"simulated": summary.Simulated,
		"skipped":   summary.SkippedTotal(),
		"total_pnl": fmt.Sprintf("%.2f", summary.TotalPnL),
	}).Info("Scheduled backtest completed")

	return nil
}
