package contracts

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmptyDirectory is returned when the ticker directory has no entries
	ErrEmptyDirectory = errors.New("ticker directory is empty")

	// ErrNoData is returned by providers when a symbol or identifier has no data
	ErrNoData = errors.New("no data")
)

// TickerDirectory returns every known symbol
// ⭐ SSOT: 티커 디렉토리 제공자 인터페이스
type TickerDirectory interface {
	GetAll(ctx context.Context) (map[string]TickerRecord, error)
}

// StudySource returns study records (completion events) and the sponsor list.
// GetSponsors includes sponsors whose studies carry no completion date.
type StudySource interface {
	GetEvents(ctx context.Context) ([]Event, error)
	GetSponsors(ctx context.Context) ([]string, error)
}

// FilingSource returns the filings of one issuer
type FilingSource interface {
	GetFilings(ctx context.Context, issuerID string) ([]Event, error)
}

// PriceHistory returns daily closes ordered by date.
// A nil slice with nil error means no data.
type PriceHistory interface {
	GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error)
}

// CandidateSource returns the raw options-flow rows
type CandidateSource interface {
	Load(ctx context.Context) ([]RawTrade, error)
}
