package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/brain"
	"github.com/wonny/catalyst/internal/external/ctgov"
	"github.com/wonny/catalyst/internal/external/sec"
	"github.com/wonny/catalyst/internal/external/stooq"
	"github.com/wonny/catalyst/internal/flow"
	"github.com/wonny/catalyst/internal/refcache"
	"github.com/wonny/catalyst/internal/results"
	"github.com/wonny/catalyst/internal/strategyconfig"
	"github.com/wonny/catalyst/pkg/config"
	"github.com/wonny/catalyst/pkg/database"
	"github.com/wonny/catalyst/pkg/httputil"
	"github.com/wonny/catalyst/pkg/logger"
	"github.com/wonny/catalyst/pkg/redis"
)

// app holds the wired dependencies shared by every command
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	strategy     *strategyconfig.Config
	strategyYAML []byte

	redis     *redis.Client
	fileStore *refcache.FileStore // nil when the Redis store is used
	sec       *sec.Client
	stooq     *stooq.Client

	db   *database.DB        // nil = persistence disabled
	repo *results.Repository // nil = persistence disabled
}

// appOptions selects optional dependencies
type appOptions struct {
	persist bool // connect to Postgres when DATABASE_URL is set
}

// newApp loads config and wires providers
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyFile != "" {
		cfg.StrategyPath = strategyFile
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy
	strategy, yamlData, err := strategyconfig.Load(cfg.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", cfg.StrategyPath, err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithFields(map[string]interface{}{
			"code": w.Code,
		}).Warn(w.Message)
	}

	a := &app{
		cfg:          cfg,
		log:          log,
		strategy:     strategy,
		strategyYAML: yamlData,
	}

	// 4. Redis (optional: cache + shared rate limit)
	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 5. Reference cache
	var store refcache.Store
	if a.redis.Enabled() {
		store = refcache.NewRedisStore(redis.NewCache(a.redis, "catalyst"), redis.TTLWeekly)
	} else {
		a.fileStore, err = refcache.NewFileStore(cfg.Cache.Dir)
		if err != nil {
			a.Close()
			return nil, err
		}
		store = a.fileStore
	}
	cache := refcache.New(store, cfg.Cache.MaxAge, log)

	// 6. External clients
	a.sec = sec.NewClient(a.newHTTPClient(cfg.SEC.RateLimit, redis.SECRateLimit(cfg.SEC.RateLimit)),
		cache, cfg.SEC.BaseURL, cfg.SEC.DataURL, log)
	a.stooq = stooq.NewClient(a.newHTTPClient(cfg.Stooq.RateLimit, redis.StooqRateLimit(cfg.Stooq.RateLimit)),
		cache, cfg.Stooq.BaseURL, log)

	// 7. Database (optional)
	if opts.persist {
		a.db, err = database.New(ctx, cfg)
		switch {
		case errors.Is(err, database.ErrDisabled):
			log.Info("DATABASE_URL not set, result persistence disabled")
		case err != nil:
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		default:
			a.repo = results.NewRepository(a.db.Pool)
			if err := a.repo.EnsureSchema(ctx); err != nil {
				a.Close()
				return nil, err
			}
		}
	}

	return a, nil
}

// newHTTPClient builds a provider client with the SEC User-Agent and a rate limiter.
// Redis shares the limit across processes; otherwise a local token bucket is used.
func (a *app) newHTTPClient(perSecond int, shared redis.RateLimitConfig) *httputil.Client {
	client := httputil.NewWithTimeout(a.log, 30*time.Second).
		WithHeader("User-Agent", a.cfg.SEC.UserAgent)

	if a.redis.Enabled() {
		return client.WithRateLimiter(redis.NewRateLimiter(a.redis, "catalyst").Bind(shared))
	}
	return client.WithRateLimiter(rate.NewLimiter(rate.Limit(perSecond), 1))
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// providers returns the data sources of a run
func (a *app) providers() brain.Providers {
	return brain.Providers{
		Tickers: a.sec,
		Studies: ctgov.NewCSVSource(a.strategy.Inputs.StudiesCSV, a.log),
		Filings: a.sec,
		Prices:  a.stooq,
	}
}

// orchestrator builds the run orchestrator; persistence is used when a repository is wired
func (a *app) orchestrator() *brain.Orchestrator {
	var store brain.ResultStore
	if a.repo != nil {
		store = a.repo
	}
	return brain.NewOrchestrator(a.providers(), store, a.log)
}

// runVariant executes one full run with the loaded strategy
func (a *app) runVariant(ctx context.Context, variant backtest.Variant, observer backtest.Observer, writeFiles bool) (*brain.RunResult, error) {
	snapshot, err := strategyconfig.NewRunSnapshot(a.strategy, a.strategyYAML)
	if err != nil {
		return nil, fmt.Errorf("create run snapshot: %w", err)
	}

	return a.orchestrator().Run(ctx, brain.RunConfig{
		Variant:    variant,
		Strategy:   a.strategy,
		Snapshot:   snapshot,
		Candidates: flow.NewCSVSource(a.strategy.Inputs.FlowCSV, a.log),
		Observer:   observer,
		WriteFiles: writeFiles,
	})
}
