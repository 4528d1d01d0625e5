package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/catalyst/internal/catalyst"
	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/internal/matching"
	"github.com/wonny/catalyst/pkg/logger"
)

// Variant selects the catalyst rule applied after entity resolution
type Variant string

const (
	// VariantCatalyst simulates trades with a matching study in the window
	VariantCatalyst Variant = "catalyst"
	// VariantNoNews simulates in-universe trades with no filing in the news window
	VariantNoNews Variant = "no-news"
)

// ParseVariant validates a variant name
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantCatalyst, VariantNoNews:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown variant %q (want %q or %q)", s, VariantCatalyst, VariantNoNews)
}

// Config holds run-scoped parameters. It is copied into the engine and never mutated.
type Config struct {
	CatalystWindow    catalyst.Window
	NewsWindow        catalyst.Window
	MatchThreshold    float64 // 0..1, study sponsor similarity
	UniverseThreshold float64 // 0..1, universe membership
	HoldingDays       int
	PriceBufferDays   int // extra calendar days fetched past the holding period
	InitialCapital    float64
	TradeSizeFraction float64
	Workers           int
	CandidateTimeout  time.Duration
}

// Reference holds the read-only tables shared by every candidate of a run
type Reference struct {
	Resolver *matching.Resolver
	Studies  *catalyst.StudyIndex // catalyst variant
	Universe *matching.Universe   // no-news variant
}

// Result holds the outcome of one run
type Result struct {
	RunID      string                     `json:"run_id"`
	Variant    Variant                    `json:"variant"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Outcomes   []contracts.Outcome        `json:"outcomes"`
	Trades     []contracts.SimulatedTrade `json:"trades"`
	Summary    Summary                    `json:"summary"`
}

// Observer is called once per finished candidate. It may be called from several goroutines.
type Observer func(runID string, index int, outcome contracts.Outcome)

// Engine runs the candidate pipeline
// ⭐ SSOT: 백테스트 파이프라인 실행은 여기서만
type Engine struct {
	cfg      Config
	ref      Reference
	prices   contracts.PriceHistory
	filings  contracts.FilingSource
	observer Observer
	logger   *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(
	cfg Config,
	ref Reference,
	prices contracts.PriceHistory,
	filings contracts.FilingSource,
	log *logger.Logger,
) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:     cfg,
		ref:     ref,
		prices:  prices,
		filings: filings,
		logger:  log.WithField("module", "backtest"),
	}
}

// WithObserver registers a per-outcome callback
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// Run evaluates every candidate. Outcomes keep the input order regardless of worker count.
func (e *Engine) Run(ctx context.Context, variant Variant, candidates []contracts.CandidateTrade) (*Result, error) {
	if err := e.check(variant); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Variant:   variant,
		StartedAt: time.Now(),
		Outcomes:  make([]contracts.Outcome, len(candidates)),
	}

	log := e.logger.WithField("run_id", result.RunID)
	log.WithFields(map[string]interface{}{
		"variant":    variant,
		"candidates": len(candidates),
		"workers":    e.cfg.Workers,
	}).Info("Starting backtest")

	// 1. Worker pool
	jobCh := make(chan int, len(candidates))
	var wg sync.WaitGroup

	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(ctx, log, workerID, variant, candidates, jobCh, result)
		}(i)
	}

	for i := range candidates {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("backtest cancelled: %w", err)
	}

	// 2. Aggregate
	for _, o := range result.Outcomes {
		if o.IsSimulated() {
			result.Trades = append(result.Trades, *o.Simulated)
		}
	}
	result.Summary = Summarize(result.Outcomes)
	result.FinishedAt = time.Now()

	log.WithFields(map[string]interface{}{
		"duration":  result.FinishedAt.Sub(result.StartedAt).Seconds(),
		"simulated": result.Summary.Simulated,
		"skipped":   result.Summary.SkippedTotal(),
		"total_pnl": fmt.Sprintf("%.2f", result.Summary.TotalPnL),
		"win_rate":  fmt.Sprintf("%.2f%%", result.Summary.WinRate*100),
	}).Info("Backtest completed")

	return result, nil
}

// worker writes each outcome into its own slot, so no locking is needed
func (e *Engine) worker(ctx context.Context, log *logger.Logger, workerID int, variant Variant, candidates []contracts.CandidateTrade, jobCh <-chan int, result *Result) {
	for i := range jobCh {
		trade := candidates[i]
		if ctx.Err() != nil {
			result.Outcomes[i] = contracts.Skipped(trade, contracts.ReasonTimeout, ctx.Err().Error())
			continue
		}

		outcome := e.evaluate(ctx, variant, trade)
		result.Outcomes[i] = outcome

		fields := map[string]interface{}{
			"worker": workerID,
			"row":    trade.Row,
			"symbol": trade.Symbol,
		}
		if outcome.IsSimulated() {
			fields["pnl_pct"] = fmt.Sprintf("%.2f%%", outcome.Simulated.PnLPercent*100)
			log.WithFields(fields).Info("Trade simulated")
		} else {
			fields["reason"] = outcome.Reason
			fields["detail"] = outcome.Detail
			switch outcome.Reason {
			case contracts.ReasonProviderError, contracts.ReasonTimeout:
				log.WithFields(fields).Warn("Candidate skipped")
			default:
				log.WithFields(fields).Debug("Candidate skipped")
			}
		}

		if e.observer != nil {
			e.observer(result.RunID, i, outcome)
		}
	}
}

// evaluate drives one candidate to a terminal state
func (e *Engine) evaluate(ctx context.Context, variant Variant, trade contracts.CandidateTrade) contracts.Outcome {
	if e.cfg.CandidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CandidateTimeout)
		defer cancel()
	}

	// 1. Resolve entity
	entity, ok := e.ref.Resolver.Resolve(trade.Symbol)
	if !ok {
		return contracts.Skipped(trade, contracts.ReasonUnresolvedTicker, "symbol not in ticker directory")
	}

	match := contracts.MatchResult{Trade: trade, Entity: entity.Record}

	// 2. Catalyst rule
	switch variant {
	case VariantCatalyst:
		ev, score, found := e.ref.Studies.FindMatch(trade.Timestamp, e.cfg.CatalystWindow, entity.Normalized)
		if !found {
			return contracts.Skipped(trade, contracts.ReasonNoCatalyst, fmt.Sprintf("no study for %q in window", entity.Normalized))
		}
		match.Catalyst = ev
		match.SimilarityScore = score

	case VariantNoNews:
		in, cand := e.ref.Universe.IsInUniverse(entity.Normalized, e.cfg.UniverseThreshold)
		if !in {
			return contracts.Skipped(trade, contracts.ReasonNotInUniverse, fmt.Sprintf("no sponsor close to %q", entity.Normalized))
		}
		match.SimilarityScore = cand.Ratio

		if entity.Record.IssuerID == "" {
			return contracts.Skipped(trade, contracts.ReasonUnresolvedTicker, "missing issuer identifier")
		}

		filings, err := e.filings.GetFilings(ctx, entity.Record.IssuerID)
		if err != nil && !errors.Is(err, contracts.ErrNoData) {
			return providerSkip(ctx, trade, "filings", err)
		}
		if news, found := catalyst.HasNews(trade.Timestamp, e.cfg.NewsWindow, filings); news {
			first := found[0]
			return contracts.Skipped(trade, contracts.ReasonNewsPresent,
				fmt.Sprintf("%s filed %s (%d in window)", first.Kind, first.Date.Format("2006-01-02"), len(found)))
		}
	}

	// 3. Prices
	start := civilDay(trade.Timestamp)
	end := start.AddDate(0, 0, e.cfg.HoldingDays+e.cfg.PriceBufferDays)

	bars, err := e.prices.GetDailyCloses(ctx, trade.Symbol, start, end)
	if err != nil && !errors.Is(err, contracts.ErrNoData) {
		return providerSkip(ctx, trade, "prices", err)
	}

	// 4. Simulate
	sim, ok := Simulate(trade.Timestamp, e.cfg.HoldingDays, bars, trade.OptionType.Direction())
	if !ok {
		return contracts.Skipped(trade, contracts.ReasonNoPriceData, fmt.Sprintf("no usable bars %s..%s", start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	return contracts.Simulated(contracts.SimulatedTrade{
		Match:       match,
		Direction:   sim.Direction,
		EntryDate:   sim.EntryDate,
		ExitDate:    sim.ExitDate,
		EntryPrice:  sim.EntryPrice,
		ExitPrice:   sim.ExitPrice,
		PnLPercent:  sim.PnLPercent,
		PnLAbsolute: e.cfg.InitialCapital * e.cfg.TradeSizeFraction * sim.PnLPercent,
	})
}

// providerSkip maps a provider failure to timeout or provider error
func providerSkip(ctx context.Context, trade contracts.CandidateTrade, what string, err error) contracts.Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return contracts.Skipped(trade, contracts.ReasonTimeout, fmt.Sprintf("%s: %v", what, err))
	}
	return contracts.Skipped(trade, contracts.ReasonProviderError, fmt.Sprintf("%s: %v", what, err))
}

// check verifies the reference tables the variant needs
func (e *Engine) check(variant Variant) error {
	if e.ref.Resolver == nil {
		return errors.New("backtest: resolver is required")
	}
	if e.prices == nil {
		return errors.New("backtest: price history is required")
	}

	switch variant {
	case VariantCatalyst:
		if e.ref.Studies == nil {
			return errors.New("backtest: study index is required for the catalyst variant")
		}
	case VariantNoNews:
		if e.ref.Universe == nil || e.filings == nil {
			return errors.New("backtest: universe and filing source are required for the no-news variant")
		}
	default:
		_, err := ParseVariant(string(variant))
		return err
	}
	return nil
}
