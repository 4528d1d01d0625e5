package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/brain"
	"github.com/wonny/catalyst/internal/catalyst"
	"github.com/wonny/catalyst/internal/flow"
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "이름 매칭 진단",
}

var (
	matchDebugCmd = &cobra.Command{
		Use:   "debug",
		Short: "윈도우 내 (티커, 스폰서) 쌍의 유사도 출력",
		Long: `카탈리스트 윈도우 안에 있는 모든 스폰서와 발행사 이름의 유사도를 출력합니다.
fuzzy_threshold 보정용입니다. ratio가 --floor 초과인 쌍만 표시합니다.

Example:
  go run ./cmd/catalyst match debug
  go run ./cmd/catalyst match debug --floor 0.6 --limit 100`,
		RunE: runMatchDebug,
	}

	// Flags
	matchFloor float64
	matchLimit int
)

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.AddCommand(matchDebugCmd)

	matchDebugCmd.Flags().Float64Var(&matchFloor, "floor", -1, "ratio floor (default: matching.debug_floor)")
	matchDebugCmd.Flags().IntVar(&matchLimit, "limit", 500, "max candidates to inspect")
}

func runMatchDebug(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	floor := a.strategy.Matching.DebugFloor
	if matchFloor >= 0 {
		floor = matchFloor
	}

	// 1. Reference tables (catalyst variant)
	ref, err := a.orchestrator().BuildReference(ctx, a.strategy, backtest.VariantCatalyst)
	if err != nil {
		return err
	}

	// 2. Candidates
	raw, err := flow.NewCSVSource(a.strategy.Inputs.FlowCSV, a.log).Load(ctx)
	if err != nil {
		return err
	}
	parsed, _ := flow.Parse(raw, a.log)
	candidates := flow.Filter(parsed, brain.FilterConfig(a.strategy, backtest.VariantCatalyst))
	if matchLimit > 0 && len(candidates) > matchLimit {
		candidates = candidates[:matchLimit]
	}

	PrintHeader("Match Debug",
		fmt.Sprintf("Candidates : %d", len(candidates)),
		fmt.Sprintf("Floor      : %.2f", floor),
		fmt.Sprintf("Threshold  : %.2f", a.strategy.Matching.MatchThreshold()),
	)

	w := catalyst.Window{
		LookbackDays:    a.strategy.CatalystWindow.LookbackDays,
		LookforwardDays: a.strategy.CatalystWindow.LookforwardDays,
	}

	pairs := 0
	for _, c := range candidates {
		entity, ok := ref.Resolver.Resolve(c.Symbol)
		if !ok {
			continue
		}
		for _, s := range ref.Studies.ScoreInWindow(c.Timestamp, w, entity.Normalized, floor) {
			pairs++
			fmt.Printf("[%.2f]%s Ticker: %s ('%s') vs Sponsor: '%s' (Orig: '%s')\n",
				s.Ratio, matchMark(s.Matched), c.Symbol, entity.Normalized, s.Normalized, s.Event.SourceName)
		}
	}

	fmt.Printf("\n%d pairs above floor\n", pairs)
	return nil
}

func matchMark(matched bool) string {
	if matched {
		return " ✅"
	}
	return ""
}

