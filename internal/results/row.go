package results

import (
	"time"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/contracts"
)

// Row is one exported simulated trade
// ⭐ SSOT: 결과 출력 스키마는 여기서만 정의 (CSV/JSON/DB/API 공통)
type Row struct {
	Symbol        string    `json:"symbol"`
	Date          time.Time `json:"date"`
	Direction     string    `json:"direction"`
	Entry         float64   `json:"entry"`
	Exit          float64   `json:"exit"`
	PnL           float64   `json:"pnl"`
	PnLPercent    float64   `json:"pnl_percent"`
	CatalystID    string    `json:"catalyst_id,omitempty"`
	CatalystTitle string    `json:"catalyst_title,omitempty"`
}

// FromTrade converts a simulated trade into an export row. PnLPercent is in percent units.
func FromTrade(st contracts.SimulatedTrade) Row {
	row := Row{
		Symbol:     st.Match.Trade.Symbol,
		Date:       st.Match.Trade.Timestamp,
		Direction:  string(st.Direction),
		Entry:      st.EntryPrice,
		Exit:       st.ExitPrice,
		PnL:        st.PnLAbsolute,
		PnLPercent: st.PnLPercent * 100,
	}
	if c := st.Match.Catalyst; c != nil {
		row.CatalystID = c.ID
		row.CatalystTitle = c.Title
	}
	return row
}

// FromResult converts every simulated trade of a run, in candidate order
func FromResult(result *backtest.Result) []Row {
	rows := make([]Row, 0, len(result.Trades))
	for _, st := range result.Trades {
		rows = append(rows, FromTrade(st))
	}
	return rows
}
