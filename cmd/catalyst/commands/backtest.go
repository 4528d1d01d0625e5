package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/catalyst/internal/backtest"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 실행",
	Long: `옵션 플로우 후보를 백테스트합니다.

Variants:
  catalyst  - 거래일 ±30일 내 임상시험 완료일(스폰서 매칭)이 있는 후보만 시뮬레이션
  no-news   - 바이오 유니버스 내 후보 중 거래일 ±1일 SEC 공시가 없는 후보만 시뮬레이션

결과는 strategy YAML의 output 경로(CSV/JSON)에 기록되고,
DATABASE_URL이 설정되어 있으면 Postgres에 저장됩니다.

Example:
  go run ./cmd/catalyst backtest catalyst
  go run ./cmd/catalyst backtest no-news --workers 4
  go run ./cmd/catalyst backtest catalyst --flow data/flow.csv --no-persist`,
}

var (
	// Flags
	backtestFlow      string
	backtestStudies   string
	backtestWorkers   int
	backtestNoPersist bool
	backtestNoFiles   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	for _, v := range []backtest.Variant{backtest.VariantCatalyst, backtest.VariantNoNews} {
		variant := v
		cmd := &cobra.Command{
			Use:   string(variant),
			Short: fmt.Sprintf("%s 변형 백테스트", variant),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBacktest(cmd.Context(), variant)
			},
		}
		cmd.Flags().StringVar(&backtestFlow, "flow", "", "flow CSV (default: inputs.flow_csv)")
		cmd.Flags().StringVar(&backtestStudies, "studies", "", "studies CSV (default: inputs.studies_csv)")
		cmd.Flags().IntVar(&backtestWorkers, "workers", 0, "worker count (default: run.workers)")
		cmd.Flags().BoolVar(&backtestNoPersist, "no-persist", false, "skip Postgres persistence")
		cmd.Flags().BoolVar(&backtestNoFiles, "no-files", false, "skip CSV/JSON output files")
		backtestCmd.AddCommand(cmd)
	}
}

func runBacktest(parent context.Context, variant backtest.Variant) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{persist: !backtestNoPersist})
	if err != nil {
		return err
	}
	defer a.Close()

	// Flag overrides
	if backtestFlow != "" {
		a.strategy.Inputs.FlowCSV = backtestFlow
	}
	if backtestStudies != "" {
		a.strategy.Inputs.StudiesCSV = backtestStudies
	}
	if backtestWorkers > 0 {
		a.strategy.Run.Workers = backtestWorkers
	}

	PrintHeader(fmt.Sprintf("Catalyst Backtest (%s)", variant),
		fmt.Sprintf("Strategy : %s", a.cfg.StrategyPath),
		fmt.Sprintf("Flow     : %s", a.strategy.Inputs.FlowCSV),
		fmt.Sprintf("Studies  : %s", a.strategy.Inputs.StudiesCSV),
		fmt.Sprintf("Workers  : %d", a.strategy.Run.Workers),
	)

	result, err := a.runVariant(ctx, variant, nil, !backtestNoFiles)
	if err != nil {
		return fmt.Errorf("❌ backtest failed: %w", err)
	}

	PrintRunReport(result)
	return nil
}
