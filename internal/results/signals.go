package results

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/contracts"
)

// SignalType labels every exported no-news signal
const SignalType = "Unusual Sweep"

// Signal is one entry of the signals feed consumed by dashboards
type Signal struct {
	ID         string  `json:"id"`
	Ticker     string  `json:"ticker"`
	Price      string  `json:"price"`
	Size       int64   `json:"size"`
	Type       string  `json:"type"`
	Sentiment  string  `json:"sentiment"`
	Conviction int     `json:"conviction"`
	Timestamp  string  `json:"timestamp"`
	PnLPct     float64 `json:"pnl_pct"`
}

// BuildSignals derives a signal per simulated trade. generatedAt seeds the ID suffix.
func BuildSignals(result *backtest.Result, generatedAt time.Time) []Signal {
	signals := make([]Signal, 0, len(result.Trades))
	for _, st := range result.Trades {
		signals = append(signals, NewSignal(st, generatedAt))
	}
	return signals
}

// NewSignal builds the signal for one simulated trade
func NewSignal(st contracts.SimulatedTrade, generatedAt time.Time) Signal {
	trade := st.Match.Trade
	pnlPct := st.PnLPercent * 100

	return Signal{
		ID:         fmt.Sprintf("sig-%d-%d", trade.Row, generatedAt.Unix()),
		Ticker:     trade.Symbol,
		Price:      fmt.Sprintf("%.2f", st.EntryPrice),
		Size:       int64(trade.Volume),
		Type:       SignalType,
		Sentiment:  Sentiment(trade.OptionType),
		Conviction: Conviction(st.PnLPercent),
		Timestamp:  trade.Timestamp.Format("15:04:05"),
		PnLPct:     pnlPct,
	}
}

// Sentiment maps calls to Bullish and puts to Bearish
func Sentiment(o contracts.OptionType) string {
	if o == contracts.Put {
		return "Bearish"
	}
	return "Bullish"
}

// Conviction scores a signal in [50, 99] from the absolute fractional return
func Conviction(pnlFraction float64) int {
	score := int(math.Abs(pnlFraction*100)*2 + 50)
	if score > 99 {
		return 99
	}
	return score
}
