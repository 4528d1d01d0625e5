package backtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/catalyst/internal/catalyst"
	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/internal/matching"
	"github.com/wonny/catalyst/pkg/logger"
)

type fakePrices struct {
	bars  map[string][]contracts.PriceBar
	err   error
	delay time.Duration
}

func (f *fakePrices) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PriceBar, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

type fakeFilings struct {
	filings map[string][]contracts.Event
	err     error
}

func (f *fakeFilings) GetFilings(ctx context.Context, cik string) ([]contracts.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.filings[cik], nil
}

var tradeTime = time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		CatalystWindow:    catalyst.Window{LookbackDays: 30, LookforwardDays: 30},
		NewsWindow:        catalyst.Window{LookbackDays: 1, LookforwardDays: 1},
		MatchThreshold:    0.85,
		UniverseThreshold: 0.8,
		HoldingDays:       5,
		PriceBufferDays:   10,
		InitialCapital:    10000,
		TradeSizeFraction: 0.1,
		Workers:           1,
	}
}

func testReference(t *testing.T, sponsor string) Reference {
	t.Helper()
	n := matching.NewNormalizer(matching.DefaultNoiseTable())
	m := matching.NewMatcher(0)

	resolver, err := matching.NewResolver(map[string]contracts.TickerRecord{
		"ZZZ": {Symbol: "ZZZ", IssuerName: "Zeta Biosciences Inc.", IssuerID: "0000000042"},
	}, n)
	require.NoError(t, err)

	studies := []contracts.Event{{
		SourceName: sponsor,
		ID:         "NCT00000001",
		Kind:       contracts.EventKindPrimaryCompletion,
		Date:       tradeTime.AddDate(0, 0, 10),
	}}

	return Reference{
		Resolver: resolver,
		Studies:  catalyst.NewStudyIndex(studies, n, m, 0.85),
		Universe: matching.NewUniverse([]string{sponsor}, n),
	}
}

func zzzPrices() *fakePrices {
	return &fakePrices{bars: map[string][]contracts.PriceBar{
		"ZZZ": bars(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 10, 10.5, 11, 11.5, 12, 12.5, 13),
	}}
}

func callTrade(symbol string) contracts.CandidateTrade {
	return contracts.CandidateTrade{Row: 1, Symbol: symbol, Timestamp: tradeTime, OptionType: contracts.Call, Volume: 1200, Premium: 50000}
}

func TestEngine_CatalystMatched(t *testing.T) {
	engine := NewEngine(testConfig(), testReference(t, "Zeta Biosciences"), zzzPrices(), nil, logger.Nop())

	result, err := engine.Run(context.Background(), VariantCatalyst, []contracts.CandidateTrade{callTrade("ZZZ")})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	st := result.Trades[0]
	require.NotNil(t, st.Match.Catalyst)
	assert.Equal(t, "NCT00000001", st.Match.Catalyst.ID)
	assert.Equal(t, 1.0, st.Match.SimilarityScore)
	assert.Equal(t, contracts.Long, st.Direction)
	assert.InDelta(t, 0.25, st.PnLPercent, 1e-12)
	assert.InDelta(t, 250.0, st.PnLAbsolute, 1e-9)
	assert.Equal(t, 1, result.Summary.Simulated)
	assert.NotEmpty(t, result.RunID)
}

func TestEngine_CatalystUnrelatedSponsor(t *testing.T) {
	engine := NewEngine(testConfig(), testReference(t, "Omega Pharma"), zzzPrices(), nil, logger.Nop())

	result, err := engine.Run(context.Background(), VariantCatalyst, []contracts.CandidateTrade{callTrade("ZZZ")})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, contracts.StatusSkipped, result.Outcomes[0].Status)
	assert.Equal(t, contracts.ReasonNoCatalyst, result.Outcomes[0].Reason)
	assert.Equal(t, 0, result.Summary.Simulated)
}

func TestEngine_SkipReasons(t *testing.T) {
	ref := testReference(t, "Zeta Biosciences")

	tests := []struct {
		name   string
		trade  contracts.CandidateTrade
		prices *fakePrices
		want   contracts.SkipReason
	}{
		{"unresolved", callTrade("NOPE"), zzzPrices(), contracts.ReasonUnresolvedTicker},
		{"no price data", callTrade("ZZZ"), &fakePrices{}, contracts.ReasonNoPriceData},
		{"provider no data", callTrade("ZZZ"), &fakePrices{err: contracts.ErrNoData}, contracts.ReasonNoPriceData},
		{"provider error", callTrade("ZZZ"), &fakePrices{err: errors.New("connection reset")}, contracts.ReasonProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(testConfig(), ref, tt.prices, nil, logger.Nop())

			result, err := engine.Run(context.Background(), VariantCatalyst, []contracts.CandidateTrade{tt.trade})
			require.NoError(t, err)
			require.Len(t, result.Outcomes, 1)
			assert.Equal(t, tt.want, result.Outcomes[0].Reason)
			assert.NotEmpty(t, result.Outcomes[0].Detail)
		})
	}
}

func TestEngine_CandidateTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.CandidateTimeout = 20 * time.Millisecond
	prices := zzzPrices()
	prices.delay = time.Second

	engine := NewEngine(cfg, testReference(t, "Zeta Biosciences"), prices, nil, logger.Nop())

	result, err := engine.Run(context.Background(), VariantCatalyst, []contracts.CandidateTrade{callTrade("ZZZ")})
	require.NoError(t, err)
	assert.Equal(t, contracts.ReasonTimeout, result.Outcomes[0].Reason)
}

func TestEngine_NoNews(t *testing.T) {
	ref := testReference(t, "Zeta Biosciences")
	put := callTrade("ZZZ")
	put.OptionType = contracts.Put

	t.Run("silent", func(t *testing.T) {
		filings := &fakeFilings{filings: map[string][]contracts.Event{
			"0000000042": {{ID: "a-1", SourceName: "Zeta", Kind: "10-K", Date: tradeTime.AddDate(0, 0, -20)}},
		}}
		engine := NewEngine(testConfig(), ref, zzzPrices(), filings, logger.Nop())

		result, err := engine.Run(context.Background(), VariantNoNews, []contracts.CandidateTrade{put})
		require.NoError(t, err)

		require.Len(t, result.Trades, 1)
		st := result.Trades[0]
		assert.Nil(t, st.Match.Catalyst)
		assert.Equal(t, contracts.Short, st.Direction)
		assert.InDelta(t, -0.25, st.PnLPercent, 1e-12)
	})

	t.Run("news present", func(t *testing.T) {
		filings := &fakeFilings{filings: map[string][]contracts.Event{
			"0000000042": {{ID: "a-2", SourceName: "Zeta", Kind: "8-K", Date: tradeTime.AddDate(0, 0, 1)}},
		}}
		engine := NewEngine(testConfig(), ref, zzzPrices(), filings, logger.Nop())

		result, err := engine.Run(context.Background(), VariantNoNews, []contracts.CandidateTrade{put})
		require.NoError(t, err)

		assert.Empty(t, result.Trades)
		assert.Equal(t, contracts.ReasonNewsPresent, result.Outcomes[0].Reason)
		assert.Contains(t, result.Outcomes[0].Detail, "8-K")
	})

	t.Run("no submissions", func(t *testing.T) {
		engine := NewEngine(testConfig(), ref, zzzPrices(), &fakeFilings{err: contracts.ErrNoData}, logger.Nop())

		result, err := engine.Run(context.Background(), VariantNoNews, []contracts.CandidateTrade{put})
		require.NoError(t, err)
		assert.Len(t, result.Trades, 1)
	})

	t.Run("filing provider error", func(t *testing.T) {
		engine := NewEngine(testConfig(), ref, zzzPrices(), &fakeFilings{err: errors.New("503")}, logger.Nop())

		result, err := engine.Run(context.Background(), VariantNoNews, []contracts.CandidateTrade{put})
		require.NoError(t, err)
		assert.Equal(t, contracts.ReasonProviderError, result.Outcomes[0].Reason)
	})

	t.Run("not in universe", func(t *testing.T) {
		other := testReference(t, "Omega Pharma")
		engine := NewEngine(testConfig(), other, zzzPrices(), &fakeFilings{}, logger.Nop())

		result, err := engine.Run(context.Background(), VariantNoNews, []contracts.CandidateTrade{put})
		require.NoError(t, err)
		assert.Equal(t, contracts.ReasonNotInUniverse, result.Outcomes[0].Reason)
	})
}

func TestEngine_WorkersKeepInputOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 4

	var mu sync.Mutex
	observed := 0

	engine := NewEngine(cfg, testReference(t, "Zeta Biosciences"), zzzPrices(), nil, logger.Nop()).
		WithObserver(func(runID string, index int, o contracts.Outcome) {
			mu.Lock()
			observed++
			mu.Unlock()
		})

	candidates := make([]contracts.CandidateTrade, 0, 20)
	for i := 0; i < 20; i++ {
		sym := "ZZZ"
		if i%2 == 1 {
			sym = "NOPE"
		}
		tr := callTrade(sym)
		tr.Row = i + 1
		candidates = append(candidates, tr)
	}

	result, err := engine.Run(context.Background(), VariantCatalyst, candidates)
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 20)
	for i, o := range result.Outcomes {
		assert.Equal(t, i+1, o.Trade.Row)
	}
	assert.Equal(t, 10, result.Summary.Simulated)
	assert.Equal(t, 10, result.Summary.Skipped[contracts.ReasonUnresolvedTicker])
	assert.Equal(t, 20, observed)
}

func TestEngine_CancelledContext(t *testing.T) {
	engine := NewEngine(testConfig(), testReference(t, "Zeta Biosciences"), zzzPrices(), nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, VariantCatalyst, []contracts.CandidateTrade{callTrade("ZZZ")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_MissingReference(t *testing.T) {
	ref := testReference(t, "Zeta Biosciences")
	ref.Studies = nil

	_, err := NewEngine(testConfig(), ref, zzzPrices(), nil, logger.Nop()).
		Run(context.Background(), VariantCatalyst, nil)
	assert.Error(t, err)

	_, err = NewEngine(testConfig(), testReference(t, "Zeta"), zzzPrices(), nil, logger.Nop()).
		Run(context.Background(), VariantNoNews, nil)
	assert.Error(t, err)

	_, err = NewEngine(testConfig(), testReference(t, "Zeta"), zzzPrices(), nil, logger.Nop()).
		Run(context.Background(), Variant("bogus"), nil)
	assert.Error(t, err)
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("no-news")
	require.NoError(t, err)
	assert.Equal(t, VariantNoNews, v)

	_, err = ParseVariant("momentum")
	assert.Error(t, err)
}
