package results

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/config"
	"github.com/wonny/catalyst/pkg/database"
)

var tradeTime = time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)

func simulatedTrade(opt contracts.OptionType, pnl float64, catalyst *contracts.Event) contracts.SimulatedTrade {
	return contracts.SimulatedTrade{
		Match: contracts.MatchResult{
			Trade: contracts.CandidateTrade{
				Row:        7,
				Symbol:     "ZZZ",
				Timestamp:  tradeTime,
				OptionType: opt,
				Volume:     1234,
				Premium:    50000,
			},
			Entity:   contracts.TickerRecord{Symbol: "ZZZ", IssuerName: "Zeta Therapeutics Inc"},
			Catalyst: catalyst,
		},
		Direction:   opt.Direction(),
		EntryDate:   tradeTime,
		ExitDate:    tradeTime.AddDate(0, 0, 5),
		EntryPrice:  100,
		ExitPrice:   100 * (1 + pnl),
		PnLPercent:  pnl,
		PnLAbsolute: 1000 * pnl,
	}
}

func testResult() *backtest.Result {
	study := &contracts.Event{ID: "NCT001", Title: "Zeta Phase 3", SourceName: "Zeta Therapeutics"}
	st := simulatedTrade(contracts.Call, 0.25, study)
	skipped := contracts.Skipped(contracts.CandidateTrade{Symbol: "QQQ"}, contracts.ReasonUnresolvedTicker, "")

	outcomes := []contracts.Outcome{contracts.Simulated(st), skipped}
	return &backtest.Result{
		RunID:      "6f1c6c1e-7f0e-4b8a-9b61-1d1f0b6f0a11",
		Variant:    backtest.VariantCatalyst,
		StartedAt:  tradeTime,
		FinishedAt: tradeTime.Add(time.Second),
		Outcomes:   outcomes,
		Trades:     []contracts.SimulatedTrade{st},
		Summary:    backtest.Summarize(outcomes),
	}
}

func TestFromTrade(t *testing.T) {
	study := &contracts.Event{ID: "NCT001", Title: "Zeta Phase 3"}
	row := FromTrade(simulatedTrade(contracts.Call, 0.25, study))

	assert.Equal(t, "ZZZ", row.Symbol)
	assert.Equal(t, tradeTime, row.Date)
	assert.Equal(t, "Long", row.Direction)
	assert.Equal(t, 100.0, row.Entry)
	assert.InDelta(t, 125.0, row.Exit, 1e-9)
	assert.InDelta(t, 250.0, row.PnL, 1e-9)
	assert.InDelta(t, 25.0, row.PnLPercent, 1e-9)
	assert.Equal(t, "NCT001", row.CatalystID)
	assert.Equal(t, "Zeta Phase 3", row.CatalystTitle)

	// no-news 변형은 카탈리스트 없음
	noNews := FromTrade(simulatedTrade(contracts.Put, -0.1, nil))
	assert.Equal(t, "Short", noNews.Direction)
	assert.Empty(t, noNews.CatalystID)
}

func TestFromResult(t *testing.T) {
	rows := FromResult(testResult())
	require.Len(t, rows, 1)
	assert.Equal(t, "ZZZ", rows[0].Symbol)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FromResult(testResult())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{
		"ZZZ", "2024-03-05T14:30:15Z", "Long", "100", "125", "250", "25", "NCT001", "Zeta Phase 3",
	}, records[1])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSaveFiles(t *testing.T) {
	dir := t.TempDir()
	rows := FromResult(testResult())

	csvPath := filepath.Join(dir, "nested", "results.csv")
	require.NoError(t, SaveCSV(csvPath, rows))
	_, err := os.Stat(csvPath)
	require.NoError(t, err)

	jsonPath := filepath.Join(dir, "results.json")
	require.NoError(t, SaveJSON(jsonPath, rows))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var decoded []Row
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "NCT001", decoded[0].CatalystID)
}

func TestNewSignal(t *testing.T) {
	generatedAt := time.Unix(1700000000, 0)
	sig := NewSignal(simulatedTrade(contracts.Put, -0.05, nil), generatedAt)

	assert.Equal(t, "sig-7-1700000000", sig.ID)
	assert.Equal(t, "ZZZ", sig.Ticker)
	assert.Equal(t, "100.00", sig.Price)
	assert.Equal(t, int64(1234), sig.Size)
	assert.Equal(t, SignalType, sig.Type)
	assert.Equal(t, "Bearish", sig.Sentiment)
	assert.Equal(t, 60, sig.Conviction)
	assert.Equal(t, "14:30:15", sig.Timestamp)
	assert.InDelta(t, -5.0, sig.PnLPct, 1e-9)
}

func TestConviction(t *testing.T) {
	tests := []struct {
		pnl  float64
		want int
	}{
		{0, 50},
		{0.05, 60},
		{-0.05, 60},
		{0.2, 90},
		{0.5, 99},
		{-1.0, 99},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Conviction(tt.pnl), "pnl=%v", tt.pnl)
	}
}

func TestSentiment(t *testing.T) {
	assert.Equal(t, "Bullish", Sentiment(contracts.Call))
	assert.Equal(t, "Bearish", Sentiment(contracts.Put))
}

func TestBuildSignals(t *testing.T) {
	signals := BuildSignals(testResult(), time.Now())
	require.Len(t, signals, 1)
	assert.Equal(t, "Bullish", signals[0].Sentiment)
}

func TestRepository(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := &config.Config{Database: config.DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}}

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	result := testResult()
	result.RunID = uuid.NewString()
	signals := BuildSignals(result, time.Now())
	require.NoError(t, repo.SaveRun(ctx, result, nil, signals))
	defer db.Pool.Exec(ctx, "DELETE FROM catalyst.runs WHERE run_id = $1", result.RunID)

	run, err := repo.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, backtest.VariantCatalyst, run.Variant)
	assert.Equal(t, 1, run.Summary.Simulated)

	rows, err := repo.GetRows(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ZZZ", rows[0].Symbol)

	skips, err := repo.GetSkips(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, skips, 1)
	assert.Equal(t, string(contracts.ReasonUnresolvedTicker), skips[0].Reason)
	assert.Equal(t, 1, skips[0].Seq)

	stored, err := repo.GetSignals(ctx, result.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	_, err = repo.GetRun(ctx, "00000000-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_MalformedRunID(t *testing.T) {
	// nil pool: a malformed ID must be rejected before any query
	repo := NewRepository(nil)
	ctx := context.Background()

	for _, id := range []string{"abc", "", "1234", "00000000-0000-4000-8000-00000000000z"} {
		t.Run(id, func(t *testing.T) {
			_, err := repo.GetRun(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.GetRows(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.GetSkips(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.GetSignals(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestParseRunID(t *testing.T) {
	id, err := parseRunID("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id)
}
