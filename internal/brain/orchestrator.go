package brain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/catalyst"
	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/internal/flow"
	"github.com/wonny/catalyst/internal/matching"
	"github.com/wonny/catalyst/internal/results"
	"github.com/wonny/catalyst/internal/strategyconfig"
	"github.com/wonny/catalyst/pkg/logger"
)

// ResultStore persists finished runs (results.Repository in production)
type ResultStore interface {
	SaveRun(ctx context.Context, result *backtest.Result, snapshot *strategyconfig.RunSnapshot, signals []results.Signal) error
}

// Providers bundles the external data sources of a run
type Providers struct {
	Tickers contracts.TickerDirectory
	Studies contracts.StudySource
	Filings contracts.FilingSource
	Prices  contracts.PriceHistory
}

// Orchestrator coordinates a complete backtest run
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	providers Providers
	store     ResultStore // nil = 저장 안 함
	logger    *logger.Logger
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Variant    backtest.Variant
	Strategy   *strategyconfig.Config
	Snapshot   *strategyconfig.RunSnapshot
	Candidates contracts.CandidateSource
	Observer   backtest.Observer
	WriteFiles bool // output 경로에 CSV/JSON 기록
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string
	Variant         backtest.Variant
	Success         bool
	Error           error
	CompletedStages []string
	ParseStats      flow.ParseStats
	Candidates      int
	Backtest        *backtest.Result
	Rows            []results.Row
	Signals         []results.Signal
	Duration        time.Duration
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(providers Providers, store ResultStore, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		store:     store,
		logger:    log.WithField("module", "orchestrator"),
	}
}

// Run executes the pipeline
// S0(reference) → S1(candidates) → S2(backtest) → S3(export) → S4(persist)
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()

	result := &RunResult{
		Variant:         config.Variant,
		CompletedStages: make([]string, 0, 5),
	}

	if config.Strategy == nil || config.Candidates == nil {
		result.Error = fmt.Errorf("strategy config and candidate source are required")
		return result, result.Error
	}
	cfg := config.Strategy

	o.logger.WithFields(map[string]interface{}{
		"variant":     config.Variant,
		"strategy_id": cfg.Meta.StrategyID,
		"workers":     cfg.Run.Workers,
	}).Info("Starting pipeline run")

	// S0: Reference tables
	ref, err := o.BuildReference(ctx, cfg, config.Variant)
	if err != nil {
		result.Error = fmt.Errorf("S0 failed: %w", err)
		return result, result.Error
	}
	result.CompletedStages = append(result.CompletedStages, "S0:Reference")

	// S1: Candidate loading + filtering
	candidates, stats, err := o.loadCandidates(ctx, config)
	if err != nil {
		result.Error = fmt.Errorf("S1 failed: %w", err)
		return result, result.Error
	}
	result.ParseStats = stats
	result.Candidates = len(candidates)
	result.CompletedStages = append(result.CompletedStages, "S1:Candidates")

	// S2: Backtest
	engine := backtest.NewEngine(EngineConfig(cfg), *ref, o.providers.Prices, o.providers.Filings, o.logger)
	if config.Observer != nil {
		engine.WithObserver(config.Observer)
	}
	bt, err := engine.Run(ctx, config.Variant, candidates)
	if err != nil {
		result.Error = fmt.Errorf("S2 failed: %w", err)
		return result, result.Error
	}
	result.RunID = bt.RunID
	result.Backtest = bt
	result.CompletedStages = append(result.CompletedStages, "S2:Backtest")

	// S3: Export
	result.Rows = results.FromResult(bt)
	result.Signals = results.BuildSignals(bt, bt.FinishedAt)
	if config.WriteFiles {
		if err := o.writeOutputs(cfg.Output, config.Variant, result); err != nil {
			result.Error = fmt.Errorf("S3 failed: %w", err)
			return result, result.Error
		}
	}
	result.CompletedStages = append(result.CompletedStages, "S3:Export")

	// S4: Persist (optional)
	if o.store != nil {
		if err := o.store.SaveRun(ctx, bt, config.Snapshot, result.Signals); err != nil {
			result.Error = fmt.Errorf("S4 failed: %w", err)
			return result, result.Error
		}
		result.CompletedStages = append(result.CompletedStages, "S4:Persist")
	} else {
		o.logger.Info("Skipping S4:Persist (no result store)")
	}

	result.Success = true
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"stages":   len(result.CompletedStages),
		"duration": result.Duration.Seconds(),
	}).Info("Pipeline run completed")

	return result, nil
}

// BuildReference loads the read-only tables a variant needs
func (o *Orchestrator) BuildReference(ctx context.Context, cfg *strategyconfig.Config, variant backtest.Variant) (*backtest.Reference, error) {
	normalizer := matching.NewNormalizer(cfg.Matching.NoiseTable.Table())
	matcher := matching.NewMatcher(cfg.Matching.ContainmentMinLength)

	// 티커 디렉터리와 임상시험 테이블은 서로 독립적이므로 병렬 로드
	var (
		directory map[string]contracts.TickerRecord
		events    []contracts.Event
		sponsors  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if directory, err = o.providers.Tickers.GetAll(gctx); err != nil {
			return fmt.Errorf("load ticker directory: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		switch variant {
		case backtest.VariantNoNews:
			// 유니버스는 완료일 유무와 관계없이 모든 스폰서로 구성
			if sponsors, err = o.providers.Studies.GetSponsors(gctx); err != nil {
				return fmt.Errorf("load sponsors: %w", err)
			}
		default:
			if events, err = o.providers.Studies.GetEvents(gctx); err != nil {
				return fmt.Errorf("load studies: %w", err)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolver, err := matching.NewResolver(directory, normalizer)
	if err != nil {
		return nil, err
	}

	ref := &backtest.Reference{Resolver: resolver}
	fields := map[string]interface{}{
		"variant":     variant,
		"tickers":     resolver.Len(),
		"noise_table": normalizer.Version(),
	}
	switch variant {
	case backtest.VariantNoNews:
		ref.Universe = matching.NewUniverse(sponsors, normalizer)
		fields["sponsors"] = len(sponsors)
		fields["universe"] = ref.Universe.Len()
	default:
		ref.Studies = catalyst.NewStudyIndex(events, normalizer, matcher, cfg.Matching.MatchThreshold())
		fields["studies"] = ref.Studies.Len()
	}

	o.logger.WithFields(fields).Info("Reference tables loaded")

	return ref, nil
}

// loadCandidates parses the raw flow and applies the variant's filter
func (o *Orchestrator) loadCandidates(ctx context.Context, config RunConfig) ([]contracts.CandidateTrade, flow.ParseStats, error) {
	raw, err := config.Candidates.Load(ctx)
	if err != nil {
		return nil, flow.ParseStats{}, fmt.Errorf("load candidates: %w", err)
	}

	parsed, stats := flow.Parse(raw, o.logger)
	candidates := flow.Filter(parsed, FilterConfig(config.Strategy, config.Variant))

	o.logger.WithFields(map[string]interface{}{
		"rows":         stats.Rows,
		"parse_errors": stats.ParseErrors,
		"candidates":   len(candidates),
	}).Info("Candidates loaded")

	return candidates, stats, nil
}

func (o *Orchestrator) writeOutputs(out strategyconfig.Output, variant backtest.Variant, result *RunResult) error {
	if out.ResultsCSV != "" {
		if err := results.SaveCSV(out.ResultsCSV, result.Rows); err != nil {
			return err
		}
	}
	if out.ResultsJSON != "" {
		if err := results.SaveJSON(out.ResultsJSON, result.Rows); err != nil {
			return err
		}
	}
	// signals feed는 no-news 변형만
	if out.SignalsJSON != "" && variant == backtest.VariantNoNews {
		if err := results.SaveJSON(out.SignalsJSON, result.Signals); err != nil {
			return err
		}
	}
	return nil
}

// EngineConfig maps the strategy config onto the run-scoped engine config
func EngineConfig(cfg *strategyconfig.Config) backtest.Config {
	return backtest.Config{
		CatalystWindow: catalyst.Window{
			LookbackDays:    cfg.CatalystWindow.LookbackDays,
			LookforwardDays: cfg.CatalystWindow.LookforwardDays,
		},
		NewsWindow: catalyst.Window{
			LookbackDays:    cfg.NewsWindow.LookbackDays,
			LookforwardDays: cfg.NewsWindow.LookforwardDays,
		},
		MatchThreshold:    cfg.Matching.MatchThreshold(),
		UniverseThreshold: cfg.Matching.UniverseRatio(),
		HoldingDays:       cfg.Trade.HoldingDays,
		PriceBufferDays:   cfg.Trade.PriceBufferDays,
		InitialCapital:    cfg.Trade.InitialCapital,
		TradeSizeFraction: cfg.Trade.TradeSizeFraction,
		Workers:           cfg.Run.Workers,
		CandidateTimeout:  cfg.Run.CandidateTimeout(),
	}
}

// FilterConfig selects the variant's candidate filter
func FilterConfig(cfg *strategyconfig.Config, variant backtest.Variant) flow.FilterConfig {
	spec := cfg.Filter.Catalyst
	if variant == backtest.VariantNoNews {
		spec = cfg.Filter.NoNews
	}
	return flow.FilterConfig{
		MinVolume:     spec.MinVolume,
		MinPremium:    spec.MinPremium,
		SortByVolume:  spec.SortByVolume,
		MaxCandidates: spec.MaxCandidates,
	}
}
