package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/wonny/catalyst/internal/brain"
	"github.com/wonny/catalyst/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		fmt.Println("───────────────────────────────────────────────────────────")
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintRunReport prints trades, skip breakdown and totals of a run
func PrintRunReport(result *brain.RunResult) {
	bt := result.Backtest

	fmt.Println()
	fmt.Printf("Run ID    : %s\n", result.RunID)
	fmt.Printf("Variant   : %s\n", result.Variant)
	fmt.Printf("Rows      : %d (parse errors: %d)\n", result.ParseStats.Rows, result.ParseStats.ParseErrors)
	fmt.Printf("Candidates: %d\n", result.Candidates)

	if len(result.Rows) > 0 {
		fmt.Println("\n--- Backtest Results ---")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tDATE\tDIRECTION\tENTRY\tEXIT\tPNL\tPNL%\tCATALYST")
		for _, r := range result.Rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f%%\t%s\n",
				r.Symbol, r.Date.Format("2006-01-02 15:04"), r.Direction,
				r.Entry, r.Exit, r.PnL, r.PnLPercent, r.CatalystID)
		}
		w.Flush()
	} else {
		fmt.Println("\nNo trades executed.")
	}

	s := bt.Summary
	fmt.Println("\n--- Skipped ---")
	for _, reason := range contracts.SkipReasons() {
		if n := s.Skipped[reason]; n > 0 {
			fmt.Printf("  %-18s %d\n", reason, n)
		}
	}

	fmt.Println("\n--- Summary ---")
	fmt.Printf("Simulated : %d / %d\n", s.Simulated, s.Candidates)
	fmt.Printf("Win rate  : %.1f%% (%d W / %d L)\n", s.WinRate*100, s.Wins, s.Losses)
	fmt.Printf("Avg PnL%%  : %.2f%%\n", s.AvgPnLPercent*100)
	fmt.Printf("Total PnL : $%.2f\n", s.TotalPnL)
	fmt.Printf("\n✅ Completed in %.2fs\n", result.Duration.Seconds())
}
