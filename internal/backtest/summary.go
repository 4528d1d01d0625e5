package backtest

import (
	"github.com/wonny/catalyst/internal/contracts"
)

// Summary aggregates a run's outcomes
type Summary struct {
	Candidates    int                          `json:"candidates"`
	Simulated     int                          `json:"simulated"`
	Skipped       map[contracts.SkipReason]int `json:"skipped"`
	TotalPnL      float64                      `json:"total_pnl"`
	AvgPnLPercent float64                      `json:"avg_pnl_percent"`
	Wins          int                          `json:"wins"`
	Losses        int                          `json:"losses"`
	WinRate       float64                      `json:"win_rate"`
}

// SkippedTotal returns the number of skipped candidates
func (s Summary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Summarize computes statistics over the simulated outcomes
func Summarize(outcomes []contracts.Outcome) Summary {
	s := Summary{
		Candidates: len(outcomes),
		Skipped:    make(map[contracts.SkipReason]int),
	}

	pctSum := 0.0
	for _, o := range outcomes {
		if !o.IsSimulated() {
			s.Skipped[o.Reason]++
			continue
		}

		st := o.Simulated
		s.Simulated++
		s.TotalPnL += st.PnLAbsolute
		pctSum += st.PnLPercent

		switch {
		case st.PnLPercent > 0:
			s.Wins++
		case st.PnLPercent < 0:
			s.Losses++
		}
	}

	if s.Simulated > 0 {
		s.AvgPnLPercent = pctSum / float64(s.Simulated)
		s.WinRate = float64(s.Wins) / float64(s.Simulated)
	}

	return s
}
