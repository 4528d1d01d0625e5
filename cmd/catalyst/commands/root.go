package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catalyst",
	Short: "Options-flow catalyst backtester",
	Long: `Catalyst Backtester CLI

옵션 플로우(Trady Flow) 후보를 발행사로 매핑한 뒤
임상시험 완료일(카탈리스트) 또는 SEC 공시 부재(no-news) 조건으로
고정 보유기간 트레이드를 시뮬레이션합니다.

Usage:
  go run ./cmd/catalyst [command]

Examples:
  go run ./cmd/catalyst backtest catalyst
  go run ./cmd/catalyst backtest no-news --workers 4
  go run ./cmd/catalyst match debug --floor 0.6
  go run ./cmd/catalyst tickers sync
  go run ./cmd/catalyst serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
