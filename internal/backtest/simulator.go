package backtest

import (
	"time"

	"github.com/wonny/catalyst/internal/contracts"
)

// SimulationOutcome is the price leg of a simulated trade
type SimulationOutcome struct {
	Direction  contracts.Direction
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice float64
	ExitPrice  float64
	PnLPercent float64 // fraction, 0.05 == 5%
	BarsHeld   int
}

// Simulate enters at the close of the first bar on or after the entry day and
// exits at bar index min(holdingDays, last). The return is sign-inverted for Short.
// It returns (nil, false) when no usable bar exists; the caller records "no price data".
// ⭐ SSOT: 트레이드 시뮬레이션은 여기서만
func Simulate(entry time.Time, holdingDays int, prices []contracts.PriceBar, dir contracts.Direction) (*SimulationOutcome, bool) {
	entryDay := civilDay(entry)

	start := 0
	for start < len(prices) && civilDay(prices[start].Date).Before(entryDay) {
		start++
	}
	bars := prices[start:]
	if len(bars) == 0 {
		return nil, false
	}

	entryBar := bars[0]
	if entryBar.Close <= 0 {
		return nil, false
	}

	if holdingDays < 0 {
		holdingDays = 0
	}
	exitIdx := min(holdingDays, len(bars)-1)
	exitBar := bars[exitIdx]

	pnl := (exitBar.Close - entryBar.Close) / entryBar.Close
	if dir == contracts.Short {
		pnl = -pnl
	}

	return &SimulationOutcome{
		Direction:  dir,
		EntryDate:  entryBar.Date,
		ExitDate:   exitBar.Date,
		EntryPrice: entryBar.Close,
		ExitPrice:  exitBar.Close,
		PnLPercent: pnl,
		BarsHeld:   exitIdx,
	}, true
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
