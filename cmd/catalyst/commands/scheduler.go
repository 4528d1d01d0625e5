package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/brain"
	"github.com/wonny/catalyst/internal/scheduler"
	"github.com/wonny/catalyst/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (동기)

Example:
  go run ./cmd/catalyst scheduler start
  go run ./cmd/catalyst scheduler list
  go run ./cmd/catalyst scheduler run ticker_sync`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- ticker_sync: 매일 06:00 (SEC 티커 디렉터리 갱신)
- backtest_catalyst: 평일 21:30 (catalyst 백테스트)
- backtest_no_news: 평일 21:30 (no-news 백테스트)
- cache_cleanup: 매일 03:00 (로컬 캐시 정리, 파일 캐시 사용 시)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	// Flags
	cacheRetention time.Duration
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().DurationVar(&cacheRetention, "cache-retention", 7*24*time.Hour, "cache_cleanup 보존 기간")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("=== Catalyst Scheduler ===")

	a, err := newApp(ctx, appOptions{persist: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-20s next: %s\n", jobName, sched.NextRun(jobName).Format("2006-01-02 15:04:05"))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(commandContext(cmd), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobName := args[0]
	fmt.Printf("Running job: %s\n", jobName)

	a, err := newApp(ctx, appOptions{persist: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.RunJobNow(ctx, jobName)
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}

	fmt.Printf("✅ Job completed in %v (%d attempt(s))\n", result.Duration.Round(time.Millisecond), result.Attempts)
	return nil
}

// newScheduler registers the recurring jobs
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	run := func(ctx context.Context, variant backtest.Variant) (*brain.RunResult, error) {
		return a.runVariant(ctx, variant, nil, true)
	}

	list := []scheduler.Job{
		jobs.NewTickerSyncJob(a.sec, a.log),
		jobs.NewBacktestJob(backtest.VariantCatalyst, "", run, a.log),
		jobs.NewBacktestJob(backtest.VariantNoNews, "", run, a.log),
	}
	if a.fileStore != nil {
		list = append(list, jobs.NewCacheCleanupJob(a.fileStore, cacheRetention, a.log))
	}

	for _, job := range list {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
