package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/Predictor/internal/model"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultListLimit = 20

// Store persists backtest results, their trades and meta decisions in PostgreSQL
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// StoredResult is a persisted backtest summary
type StoredResult struct {
	ID        int64
	CreatedAt time.Time
	Record    model.ResultRecord
}

// ResultFilter narrows ListResults. Empty fields match everything.
type ResultFilter struct {
	Strategies []string
	Symbol     string
	Limit      int
}

// Open connects to PostgreSQL and creates the tables if they don't exist
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := New(db)
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool
func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: log.With().Str("component", "results_store").Logger(),
	}
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS backtest_results (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			strategy_name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			initial_capital DOUBLE PRECISION NOT NULL,
			final_capital DOUBLE PRECISION NOT NULL,
			total_return DOUBLE PRECISION NOT NULL,
			total_return_pct DOUBLE PRECISION NOT NULL,
			total_trades INTEGER NOT NULL,
			winning_trades INTEGER NOT NULL,
			losing_trades INTEGER NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL,
			avg_profit DOUBLE PRECISION NOT NULL,
			avg_loss DOUBLE PRECISION NOT NULL,
			profit_factor DOUBLE PRECISION NOT NULL,
			max_drawdown DOUBLE PRECISION NOT NULL,
			max_drawdown_pct DOUBLE PRECISION NOT NULL,
			sharpe_ratio DOUBLE PRECISION,
			sortino_ratio DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			result_id BIGINT NOT NULL REFERENCES backtest_results(id) ON DELETE CASCADE,
			trade_id INTEGER NOT NULL,
			direction TEXT NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			exit_time TIMESTAMPTZ,
			exit_price DOUBLE PRECISION,
			size DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			commission DOUBLE PRECISION NOT NULL,
			profit_loss DOUBLE PRECISION NOT NULL,
			exit_reason TEXT,
			PRIMARY KEY (result_id, trade_id)
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id BIGSERIAL PRIMARY KEY,
			decided_at TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			final_signal DOUBLE PRECISION NOT NULL,
			final_confidence DOUBLE PRECISION NOT NULL,
			position_size DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit DOUBLE PRECISION NOT NULL,
			veto_reasons TEXT[] NOT NULL DEFAULT '{}',
			reasoning_chain TEXT[] NOT NULL DEFAULT '{}'
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

const insertResult = `
	INSERT INTO backtest_results (
		strategy_name, symbol, start_date, end_date, initial_capital, final_capital,
		total_return, total_return_pct, total_trades, winning_trades, losing_trades,
		win_rate, avg_profit, avg_loss, profit_factor, max_drawdown, max_drawdown_pct,
		sharpe_ratio, sortino_ratio
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	RETURNING id`

const insertTrade = `
	INSERT INTO backtest_trades (
		result_id, trade_id, direction, entry_time, entry_price, exit_time, exit_price,
		size, stop_loss, take_profit, commission, profit_loss, exit_reason
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// SaveResult stores a result and its trades in one transaction and returns the result id
func (s *Store) SaveResult(ctx context.Context, result *model.BacktestResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, insertResult, resultArgs(result)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting result: %w", err)
	}

	for _, t := range result.Trades {
		if _, err := tx.ExecContext(ctx, insertTrade, tradeArgs(id, t)...); err != nil {
			return 0, fmt.Errorf("inserting trade %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing result: %w", err)
	}

	s.logger.Info().
		Int64("id", id).
		Str("strategy", result.StrategyName).
		Int("trades", len(result.Trades)).
		Msg("Backtest result saved")
	return id, nil
}

// ListResults returns stored summaries, newest first
func (s *Store) ListResults(ctx context.Context, filter ResultFilter) ([]StoredResult, error) {
	query, args := listQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			sr              StoredResult
			res             model.BacktestResult
			sharpe, sortino sql.NullFloat64
		)
		err := rows.Scan(
			&sr.ID, &sr.CreatedAt, &res.StrategyName, &res.Symbol, &res.StartDate, &res.EndDate,
			&res.InitialCapital, &res.FinalCapital, &res.TotalReturn, &res.TotalReturnPct,
			&res.TotalTrades, &res.WinningTrades, &res.LosingTrades, &res.WinRate,
			&res.AvgProfit, &res.AvgLoss, &res.ProfitFactor, &res.MaxDrawdown, &res.MaxDrawdownPct,
			&sharpe, &sortino,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		res.SharpeRatio = ratioFromNull(sharpe)
		res.SortinoRatio = ratioFromNull(sortino)
		sr.Record = res.Record()
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return out, nil
}

// SaveDecision records one meta decision for later review
func (s *Store) SaveDecision(ctx context.Context, symbol string, at time.Time, d model.MetaDecision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			decided_at, symbol, action, final_signal, final_confidence,
			position_size, stop_loss, take_profit, veto_reasons, reasoning_chain
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, decisionArgs(symbol, at, d)...)
	if err != nil {
		return fmt.Errorf("inserting decision: %w", err)
	}
	return nil
}

func resultArgs(r *model.BacktestResult) []any {
	return []any{
		r.StrategyName, r.Symbol, r.StartDate, r.EndDate, r.InitialCapital, r.FinalCapital,
		r.TotalReturn, r.TotalReturnPct, r.TotalTrades, r.WinningTrades, r.LosingTrades,
		r.WinRate, r.AvgProfit, r.AvgLoss, r.ProfitFactor, r.MaxDrawdown, r.MaxDrawdownPct,
		nullableFloat(r.SharpeRatio), nullableFloat(r.SortinoRatio),
	}
}

func tradeArgs(resultID int64, t model.Trade) []any {
	var exitTime sql.NullTime
	if t.ExitTime != nil {
		exitTime = sql.NullTime{Time: *t.ExitTime, Valid: true}
	}
	exitReason := sql.NullString{String: t.ExitReason, Valid: t.ExitReason != ""}

	return []any{
		resultID, t.ID, string(t.Direction), t.EntryTime, t.EntryPrice, exitTime,
		nullableFloat(t.ExitPrice), t.Size, nullableFloat(t.StopLoss), nullableFloat(t.TakeProfit),
		t.Commission, t.ProfitLoss(), exitReason,
	}
}

func decisionArgs(symbol string, at time.Time, d model.MetaDecision) []any {
	vetoes := d.VetoReasons
	if vetoes == nil {
		vetoes = []string{}
	}
	chain := d.ReasoningChain
	if chain == nil {
		chain = []string{}
	}
	return []any{
		at, symbol, string(d.Action), d.FinalSignal, d.FinalConfidence,
		d.PositionSize, d.StopLoss, d.TakeProfit, pq.Array(vetoes), pq.Array(chain),
	}
}

func listQuery(filter ResultFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(filter.Strategies) > 0 {
		args = append(args, pq.Array(filter.Strategies))
		conds = append(conds, "strategy_name = ANY($"+strconv.Itoa(len(args))+")")
	}
	if filter.Symbol != "" {
		args = append(args, filter.Symbol)
		conds = append(conds, "symbol = $"+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	var b strings.Builder
	b.WriteString(`SELECT id, created_at, strategy_name, symbol, start_date, end_date,
		initial_capital, final_capital, total_return, total_return_pct,
		total_trades, winning_trades, losing_trades, win_rate,
		avg_profit, avg_loss, profit_factor, max_drawdown, max_drawdown_pct,
		sharpe_ratio, sortino_ratio
	FROM backtest_results`)
	if len(conds) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString("\n\tORDER BY created_at DESC, id DESC\n\tLIMIT $" + strconv.Itoa(len(args)))
	return b.String(), args
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func ratioFromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
