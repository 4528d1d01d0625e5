package contracts

import (
	"strings"
	"time"
)

// TickerRecord is one entry of the ticker directory
// ⭐ SSOT: 티커 → 발행사 매핑 (실행 중 불변)
type TickerRecord struct {
	Symbol     string `json:"symbol"`
	IssuerName string `json:"issuer_name"`
	IssuerID   string `json:"issuer_id,omitempty"` // SEC CIK, 10자리 zero-padded
}

// Event is a dated reference-dataset record: a study completion or a regulatory filing
// ⭐ SSOT: StudyRecord / FilingRecord 통합 타입
type Event struct {
	SourceID   string    `json:"source_id,omitempty"` // sponsor or filer identifier
	SourceName string    `json:"source_name"`         // sponsor or filer name
	Date       time.Time `json:"date"`
	ID         string    `json:"id"`   // NCT number or accession number
	Kind       string    `json:"kind"` // primary_completion, 8-K, 10-Q ...
	Title      string    `json:"title,omitempty"`
}

// EventKindPrimaryCompletion marks a study's primary completion date
const EventKindPrimaryCompletion = "primary_completion"

// Valid reports whether the event can take part in window detection
func (e Event) Valid() bool {
	return !e.Date.IsZero() && strings.TrimSpace(e.SourceName) != "" && strings.TrimSpace(e.ID) != ""
}

// ValidEvents drops events with no date, name, or identifier
func ValidEvents(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Valid() {
			out = append(out, e)
		}
	}
	return out
}

// OptionType is the contract side of a flow row
type OptionType string

const (
	Call OptionType = "Call"
	Put  OptionType = "Put"
)

// ParseOptionType maps C/P, Call/Put (any case) to an OptionType
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call", "calls":
		return Call, true
	case "p", "put", "puts":
		return Put, true
	}
	return "", false
}

// Direction is the simulated position side
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// Direction maps a call to Long and a put to Short
func (o OptionType) Direction() Direction {
	if o == Put {
		return Short
	}
	return Long
}

// RawTrade is one unparsed row of the options-flow feed
type RawTrade struct {
	Row        int    `json:"row"` // 1-based data row, for diagnostics
	Symbol     string `json:"symbol"`
	Time       string `json:"time"`
	OptionType string `json:"option_type"`
	Volume     string `json:"volume"`
	Premium    string `json:"premium"`
}

// CandidateTrade is a parsed flow row that passed volume/premium filtering
type CandidateTrade struct {
	Row        int        `json:"row"`
	Symbol     string     `json:"symbol"`
	Timestamp  time.Time  `json:"timestamp"`
	OptionType OptionType `json:"option_type"`
	Volume     float64    `json:"volume"`
	Premium    float64    `json:"premium"`
}

// PriceBar is one daily close
type PriceBar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}
