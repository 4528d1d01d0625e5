package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/strategyconfig"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

// RunRecord is the stored header of one backtest run
type RunRecord struct {
	RunID      string           `json:"run_id"`
	Variant    backtest.Variant `json:"variant"`
	StrategyID string           `json:"strategy_id"`
	ConfigHash string           `json:"config_hash"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Summary    backtest.Summary `json:"summary"`
}

// SkipRecord is one stored skipped candidate
type SkipRecord struct {
	Seq    int    `json:"seq"`
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Repository persists runs, simulated trades and skipped outcomes
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new results repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS catalyst;

	CREATE TABLE IF NOT EXISTS catalyst.runs (
		run_id       UUID PRIMARY KEY,
		variant      TEXT NOT NULL,
		strategy_id  TEXT NOT NULL,
		config_hash  TEXT NOT NULL,
		config_yaml  TEXT NOT NULL DEFAULT '',
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL,
		summary      JSONB NOT NULL,
		signals      JSONB NOT NULL DEFAULT '[]',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS catalyst.trades (
		run_id          UUID NOT NULL REFERENCES catalyst.runs(run_id) ON DELETE CASCADE,
		seq             INT NOT NULL,
		symbol          TEXT NOT NULL,
		trade_time      TIMESTAMPTZ NOT NULL,
		direction       TEXT NOT NULL,
		entry_price     DOUBLE PRECISION NOT NULL,
		exit_price      DOUBLE PRECISION NOT NULL,
		pnl             DOUBLE PRECISION NOT NULL,
		pnl_percent     DOUBLE PRECISION NOT NULL,
		catalyst_id     TEXT NOT NULL DEFAULT '',
		catalyst_title  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS catalyst.skips (
		run_id  UUID NOT NULL REFERENCES catalyst.runs(run_id) ON DELETE CASCADE,
		seq     INT NOT NULL,
		symbol  TEXT NOT NULL,
		reason  TEXT NOT NULL,
		detail  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON catalyst.runs (started_at DESC);
`

// EnsureSchema creates the result tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun stores a run with its trades, skips and signals in one transaction
func (r *Repository) SaveRun(ctx context.Context, result *backtest.Result, snapshot *strategyconfig.RunSnapshot, signals []Signal) error {
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if signals == nil {
		signals = []Signal{}
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	strategyID, configHash, configYAML := "", "", ""
	if snapshot != nil {
		strategyID, configHash, configYAML = snapshot.StrategyID, snapshot.ConfigHash, snapshot.ConfigYAML
	}

	// Begin transaction
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO catalyst.runs (
			run_id, variant, strategy_id, config_hash, config_yaml,
			started_at, finished_at, summary, signals
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		result.RunID, string(result.Variant), strategyID, configHash, configYAML,
		result.StartedAt, result.FinishedAt, summaryJSON, signalsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for seq, o := range result.Outcomes {
		if o.IsSimulated() {
			row := FromTrade(*o.Simulated)
			batch.Queue(`
				INSERT INTO catalyst.trades (
					run_id, seq, symbol, trade_time, direction,
					entry_price, exit_price, pnl, pnl_percent, catalyst_id, catalyst_title
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				result.RunID, seq, row.Symbol, row.Date, row.Direction,
				row.Entry, row.Exit, row.PnL, row.PnLPercent, row.CatalystID, row.CatalystTitle,
			)
			continue
		}
		batch.Queue(`
			INSERT INTO catalyst.skips (run_id, seq, symbol, reason, detail)
			VALUES ($1, $2, $3, $4, $5)`,
			result.RunID, seq, o.Trade.Symbol, string(o.Reason), o.Detail,
		)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("failed to insert outcome: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT run_id::text, variant, strategy_id, config_hash, started_at, finished_at, summary
		FROM catalyst.runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun returns one run header
func (r *Repository) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	runID, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		SELECT run_id::text, variant, strategy_id, config_hash, started_at, finished_at, summary
		FROM catalyst.runs
		WHERE run_id = $1
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// GetRows returns the simulated trades of a run in candidate order
func (r *Repository) GetRows(ctx context.Context, runID string) ([]Row, error) {
	runID, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT symbol, trade_time, direction, entry_price, exit_price, pnl, pnl_percent,
			   catalyst_id, catalyst_title
		FROM catalyst.trades
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.Symbol, &row.Date, &row.Direction, &row.Entry, &row.Exit,
			&row.PnL, &row.PnLPercent, &row.CatalystID, &row.CatalystTitle,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// GetSkips returns the skipped outcomes of a run in candidate order
func (r *Repository) GetSkips(ctx context.Context, runID string) ([]SkipRecord, error) {
	runID, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT seq, symbol, reason, detail
		FROM catalyst.skips
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query skips: %w", err)
	}
	defer rows.Close()

	skips := []SkipRecord{}
	for rows.Next() {
		var s SkipRecord
		if err := rows.Scan(&s.Seq, &s.Symbol, &s.Reason, &s.Detail); err != nil {
			return nil, fmt.Errorf("scan skip: %w", err)
		}
		skips = append(skips, s)
	}

	return skips, rows.Err()
}

// GetSignals returns the signals stored with a run
func (r *Repository) GetSignals(ctx context.Context, runID string) ([]Signal, error) {
	runID, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = r.pool.QueryRow(ctx, `SELECT signals FROM catalyst.runs WHERE run_id = $1`, runID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}

	signals := []Signal{}
	if err := json.Unmarshal(raw, &signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	return signals, nil
}

// parseRunID canonicalizes a run ID. Run IDs are UUIDs, so anything else
// cannot exist and is reported as ErrNotFound instead of a Postgres cast error.
func parseRunID(runID string) (string, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotFound, runID)
	}
	return id.String(), nil
}

func scanRun(row pgx.Row) (*RunRecord, error) {
	var (
		run         RunRecord
		variant     string
		summaryJSON []byte
	)
	if err := row.Scan(
		&run.RunID, &variant, &run.StrategyID, &run.ConfigHash,
		&run.StartedAt, &run.FinishedAt, &summaryJSON,
	); err != nil {
		return nil, err
	}
	run.Variant = backtest.Variant(variant)

	if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &run, nil
}
