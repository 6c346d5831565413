// Package store defines storage interfaces for the historical price series
// replayed by backtests and for the ledger of finished backtest runs.
package store

import (
	"context"
	"errors"
	"time"

	"hindsight/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// PriceStore persists and retrieves historical price series.
type PriceStore interface {
	// WritePrices merges a batch of price records for symbol into storage.
	// Records with an existing timestamp replace the stored ones.
	WritePrices(ctx context.Context, symbol string, prices []domain.PriceRecord) error

	// ReadPrices returns the records for symbol within [start, end], sorted
	// by timestamp. A zero start or end leaves that side unbounded.
	ReadPrices(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceRecord, error)

	// ListSymbols returns all symbols that have stored prices.
	ListSymbols(ctx context.Context) ([]string, error)
}

// ResultStore persists finished backtest runs.
type ResultStore interface {
	// SaveResult stores a result and returns its generated run ID.
	SaveResult(ctx context.Context, result *domain.BacktestResult) (string, error)

	// GetResult returns the full result for a run ID, or ErrNotFound.
	GetResult(ctx context.Context, id string) (*domain.BacktestResult, error)

	// ListResults returns the most recent run summaries, newest first.
	ListResults(ctx context.Context, limit int) ([]RunSummary, error)

	// ListTrades returns the trade ledger of a run in the order the trades
	// were closed.
	ListTrades(ctx context.Context, id string) ([]domain.Trade, error)
}

// RunSummary is the headline view of a stored backtest run.
type RunSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Strategy     string    `json:"strategy"`
	Symbol       string    `json:"symbol"`
	TotalTrades  int       `json:"totalTrades"`
	TotalReturn  float64   `json:"totalReturn"`
	SharpeRatio  float64   `json:"sharpeRatio"`
	MaxDrawdown  float64   `json:"maxDrawdown"`
	FinalBalance float64   `json:"finalBalance"`
}
