package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hindsight/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id                TEXT PRIMARY KEY,
		created_at        INTEGER NOT NULL,
		strategy          TEXT NOT NULL,
		symbol            TEXT NOT NULL,
		parameters        TEXT NOT NULL,
		initial_balance   REAL NOT NULL,
		final_balance     REAL NOT NULL,
		start_time        INTEGER NOT NULL,
		end_time          INTEGER NOT NULL,
		days              REAL NOT NULL,
		total_trades      INTEGER NOT NULL,
		win_rate          REAL NOT NULL,
		total_return      REAL NOT NULL,
		annualized_return REAL NOT NULL,
		sharpe_ratio      REAL NOT NULL,
		max_drawdown      REAL NOT NULL,
		profit_factor     REAL NOT NULL,
		result            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_created ON backtest_runs (created_at)`,
	`CREATE TABLE IF NOT EXISTS backtest_trades (
		run_id           TEXT NOT NULL REFERENCES backtest_runs (id) ON DELETE CASCADE,
		seq              INTEGER NOT NULL,
		symbol           TEXT NOT NULL,
		direction        TEXT NOT NULL,
		entry_price      REAL NOT NULL,
		exit_price       REAL NOT NULL,
		quantity         REAL NOT NULL,
		entry_time       INTEGER NOT NULL,
		exit_time        INTEGER NOT NULL,
		profit_loss      REAL NOT NULL,
		pnl              REAL NOT NULL,
		commission       REAL NOT NULL,
		entry_commission REAL NOT NULL,
		exit_reason      TEXT NOT NULL,
		confidence       REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// ResultStore implementation
// ---------------------------------------------------------------------------

// SaveResult inserts the run and its trade ledger in one transaction.
func (s *SQLiteStore) SaveResult(ctx context.Context, r *domain.BacktestResult) (string, error) {
	params, err := json.Marshal(r.Parameters)
	if err != nil {
		return "", fmt.Errorf("encoding parameters: %w", err)
	}
	blob, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}

	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO backtest_runs (
		id, created_at, strategy, symbol, parameters, initial_balance, final_balance,
		start_time, end_time, days, total_trades, win_rate, total_return,
		annualized_return, sharpe_ratio, max_drawdown, profit_factor, result
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UnixMilli(), r.Strategy, r.Symbol, string(params),
		r.InitialBalance, r.FinalBalance, r.StartTime.UnixMilli(), r.EndTime.UnixMilli(),
		r.Days, r.TotalTrades, r.WinRate, r.TotalReturn, r.AnnualizedReturn,
		r.SharpeRatio, r.MaxDrawdown, r.ProfitFactor, string(blob),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO backtest_trades (
		run_id, seq, symbol, direction, entry_price, exit_price, quantity,
		entry_time, exit_time, profit_loss, pnl, commission, entry_commission,
		exit_reason, confidence
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, t := range r.Trades {
		_, err := stmt.ExecContext(ctx,
			id, i, t.Symbol, string(t.Direction), t.EntryPrice, t.ExitPrice, t.Quantity,
			t.EntryTime.UnixMilli(), t.ExitTime.UnixMilli(), t.ProfitLoss, t.PnL,
			t.Commission, t.EntryCommission, t.ExitReason, t.Confidence,
		)
		if err != nil {
			return "", fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// GetResult retrieves a single run by its ID.
func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*domain.BacktestResult, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM backtest_runs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var r domain.BacktestResult
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return &r, nil
}

// ListResults returns the most recent runs, newest first. A non-positive
// limit returns every run.
func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, created_at, strategy, symbol, total_trades, total_return,
		sharpe_ratio, max_drawdown, final_balance
	FROM backtest_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs      RunSummary
			created int64
		)
		if err := rows.Scan(&rs.ID, &created, &rs.Strategy, &rs.Symbol, &rs.TotalTrades,
			&rs.TotalReturn, &rs.SharpeRatio, &rs.MaxDrawdown, &rs.FinalBalance); err != nil {
			return nil, err
		}
		rs.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, rs)
	}
	return out, rows.Err()
}

// ListTrades returns the trade ledger stored for a run.
func (s *SQLiteStore) ListTrades(ctx context.Context, id string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		symbol, direction, entry_price, exit_price, quantity, entry_time, exit_time,
		profit_loss, pnl, commission, entry_commission, exit_reason, confidence
	FROM backtest_trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var (
			t           domain.Trade
			dir         string
			entry, exit int64
		)
		if err := rows.Scan(&t.Symbol, &dir, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
			&entry, &exit, &t.ProfitLoss, &t.PnL, &t.Commission, &t.EntryCommission,
			&t.ExitReason, &t.Confidence); err != nil {
			return nil, err
		}
		t.Direction = domain.Direction(dir)
		t.EntryTime = time.UnixMilli(entry).UTC()
		t.ExitTime = time.UnixMilli(exit).UTC()
		t.HoldTime = t.ExitTime.Sub(t.EntryTime)
		out = append(out, t)
	}
	return out, rows.Err()
}
