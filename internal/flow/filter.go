package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/logger"
)

// ParseStats counts what happened to the raw rows
type ParseStats struct {
	Rows        int `json:"rows"`
	ParseErrors int `json:"parse_errors"`
	Parsed      int `json:"parsed"`
}

// Parse converts raw rows into trades. Malformed rows are counted, logged with
// their row number and dropped; they never abort the run.
func Parse(raw []contracts.RawTrade, log *logger.Logger) ([]contracts.CandidateTrade, ParseStats) {
	stats := ParseStats{Rows: len(raw)}
	out := make([]contracts.CandidateTrade, 0, len(raw))

	for _, r := range raw {
		trade, err := parseRow(r)
		if err != nil {
			stats.ParseErrors++
			log.WithError(err).WithFields(map[string]interface{}{
				"row":    r.Row,
				"symbol": r.Symbol,
			}).Warn("parse error")
			continue
		}
		out = append(out, trade)
	}

	stats.Parsed = len(out)
	return out, stats
}

func parseRow(r contracts.RawTrade) (contracts.CandidateTrade, error) {
	symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
	if symbol == "" {
		return contracts.CandidateTrade{}, fmt.Errorf("empty symbol")
	}

	ts, err := ParseTime(r.Time)
	if err != nil {
		return contracts.CandidateTrade{}, err
	}

	ot, ok := contracts.ParseOptionType(r.OptionType)
	if !ok {
		return contracts.CandidateTrade{}, fmt.Errorf("unknown option type %q", r.OptionType)
	}

	vol, err := ParseValue(r.Volume)
	if err != nil {
		return contracts.CandidateTrade{}, fmt.Errorf("volume: %w", err)
	}

	prem := 0.0
	if strings.TrimSpace(r.Premium) != "" {
		prem, err = ParseValue(r.Premium)
		if err != nil {
			return contracts.CandidateTrade{}, fmt.Errorf("premium: %w", err)
		}
	}

	return contracts.CandidateTrade{
		Row:        r.Row,
		Symbol:     symbol,
		Timestamp:  ts,
		OptionType: ot,
		Volume:     vol,
		Premium:    prem,
	}, nil
}

// FilterConfig selects candidate trades
type FilterConfig struct {
	MinVolume     float64
	MinPremium    float64
	SortByVolume  bool // highest volume first
	MaxCandidates int  // 0 means no cap
}

// Filter keeps trades at or above both thresholds, optionally ordered by
// volume (stable) and capped
func Filter(trades []contracts.CandidateTrade, cfg FilterConfig) []contracts.CandidateTrade {
	out := make([]contracts.CandidateTrade, 0, len(trades))
	for _, t := range trades {
		if t.Volume >= cfg.MinVolume && t.Premium >= cfg.MinPremium {
			out = append(out, t)
		}
	}

	if cfg.SortByVolume {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Volume > out[j].Volume
		})
	}

	if cfg.MaxCandidates > 0 && len(out) > cfg.MaxCandidates {
		out = out[:cfg.MaxCandidates]
	}

	return out
}
