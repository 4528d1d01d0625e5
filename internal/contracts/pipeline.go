package contracts

import "time"

// MatchResult links a candidate trade to its resolved issuer and catalyst.
// Catalyst is nil in the no-news variant.
type MatchResult struct {
	Trade           CandidateTrade `json:"trade"`
	Entity          TickerRecord   `json:"entity"`
	Catalyst        *Event         `json:"catalyst,omitempty"`
	SimilarityScore float64        `json:"similarity_score"`
}

// SimulatedTrade is the terminal result of a simulated candidate
type SimulatedTrade struct {
	Match       MatchResult `json:"match"`
	Direction   Direction   `json:"direction"`
	EntryDate   time.Time   `json:"entry_date"`
	ExitDate    time.Time   `json:"exit_date"`
	EntryPrice  float64     `json:"entry_price"`
	ExitPrice   float64     `json:"exit_price"`
	PnLPercent  float64     `json:"pnl_percent"`
	PnLAbsolute float64     `json:"pnl_absolute"`
}

// OutcomeStatus is the terminal state of a candidate
type OutcomeStatus string

const (
	StatusSimulated OutcomeStatus = "simulated"
	StatusSkipped   OutcomeStatus = "skipped"
)

// SkipReason explains why a candidate never reached simulation
// ⭐ SSOT: 스킵 사유는 여기서만 정의
type SkipReason string

const (
	ReasonUnresolvedTicker SkipReason = "unresolved ticker"
	ReasonNotInUniverse    SkipReason = "not in universe"
	ReasonNoCatalyst       SkipReason = "no catalyst"
	ReasonNewsPresent      SkipReason = "news present"
	ReasonNoPriceData      SkipReason = "no price data"
	ReasonProviderError    SkipReason = "provider error"
	ReasonTimeout          SkipReason = "timeout"
)

// SkipReasons lists every reason in reporting order
func SkipReasons() []SkipReason {
	return []SkipReason{
		ReasonUnresolvedTicker,
		ReasonNotInUniverse,
		ReasonNoCatalyst,
		ReasonNewsPresent,
		ReasonNoPriceData,
		ReasonProviderError,
		ReasonTimeout,
	}
}

// Outcome is the terminal state of one candidate trade
type Outcome struct {
	Trade     CandidateTrade  `json:"trade"`
	Status    OutcomeStatus   `json:"status"`
	Reason    SkipReason      `json:"reason,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	Simulated *SimulatedTrade `json:"simulated,omitempty"`
}

// Skipped builds a skipped outcome
func Skipped(trade CandidateTrade, reason SkipReason, detail string) Outcome {
	return Outcome{Trade: trade, Status: StatusSkipped, Reason: reason, Detail: detail}
}

// Simulated builds a simulated outcome
func Simulated(st SimulatedTrade) Outcome {
	return Outcome{Trade: st.Match.Trade, Status: StatusSimulated, Simulated: &st}
}

// IsSimulated reports whether the outcome carries a simulated trade
func (o Outcome) IsSimulated() bool {
	return o.Status == StatusSimulated && o.Simulated != nil
}
