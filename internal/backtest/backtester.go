// Package backtest wires the engine to storage: it loads a symbol's price
// history, runs or optimizes a named strategy over it, and records the
// finished runs.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hindsight/internal/domain"
	"hindsight/internal/engine"
	"hindsight/internal/optimize"
	"hindsight/internal/store"
	"hindsight/internal/strategy"
)

// Request selects what a backtest replays.
type Request struct {
	Strategy string
	Symbol   string
	Start    time.Time // zero means from the first stored price
	End      time.Time // zero means up to the last stored price
	Params   strategy.Parameters
}

// Backtester replays stored price data through registered strategies and
// computes performance metrics.
type Backtester struct {
	prices   store.PriceStore
	results  store.ResultStore
	registry *strategy.Registry
	opts     engine.Options
	log      *slog.Logger
}

// NewBacktester creates a Backtester that reads prices from the given store
// and looks up strategies in the provided registry. results may be nil, in
// which case runs are not recorded.
func NewBacktester(
	prices store.PriceStore,
	results store.ResultStore,
	registry *strategy.Registry,
	opts engine.Options,
	logger *slog.Logger,
) *Backtester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backtester{
		prices:   prices,
		results:  results,
		registry: registry,
		opts:     opts,
		log:      logger.With("component", "backtest"),
	}
}

// Load returns the stored price series for symbol within [start, end].
func (bt *Backtester) Load(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceRecord, error) {
	prices, err := bt.prices.ReadPrices(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading %s prices: %w", symbol, err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, engine.ErrNoPrices)
	}
	return prices, nil
}

// Run executes a backtest for the requested strategy and records it. The
// returned ID is empty when no result store is configured.
func (bt *Backtester) Run(ctx context.Context, req Request) (*domain.BacktestResult, string, error) {
	s, err := bt.prepare(req)
	if err != nil {
		return nil, "", err
	}
	prices, err := bt.Load(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, "", err
	}

	res, err := bt.engine(req.Symbol).Run(prices, s)
	if err != nil {
		return nil, "", fmt.Errorf("backtesting %s: %w", s.Name(), err)
	}
	bt.log.Info("backtest complete",
		"strategy", res.Strategy,
		"symbol", res.Symbol,
		"trades", res.TotalTrades,
		"total_return", res.TotalReturn,
		"sharpe", res.SharpeRatio,
	)

	id, err := bt.save(ctx, res)
	return res, id, err
}

// Optimize grid-searches the requested strategy and records the best run.
func (bt *Backtester) Optimize(ctx context.Context, req Request, grid optimize.Grid) (*optimize.Outcome, string, error) {
	s, err := bt.prepare(req)
	if err != nil {
		return nil, "", err
	}
	prices, err := bt.Load(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, "", err
	}

	out, err := optimize.New(bt.engine(req.Symbol), bt.log).Search(ctx, s, grid, prices)
	if err != nil {
		return nil, "", err
	}
	if out.Best == nil {
		return out, "", nil
	}
	id, err := bt.save(ctx, out.Best)
	return out, id, err
}

// Compare runs every named strategy over the same stored series. Successful
// runs are recorded; the map keys are strategy names.
func (bt *Backtester) Compare(ctx context.Context, names []string, req Request, workers int) (map[string]optimize.Comparison, error) {
	prices, err := bt.Load(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	out, err := optimize.Compare(ctx, bt.registry, names, bt.engine(req.Symbol), prices, workers)
	if err != nil {
		return out, err
	}
	for name, c := range out {
		if c.Err != nil {
			bt.log.Warn("strategy failed", "strategy", name, "error", c.Err)
			continue
		}
		if _, err := bt.save(ctx, c.Result); err != nil {
			return out, err
		}
	}
	return out, nil
}

// prepare looks up the strategy and applies any parameter overrides.
func (bt *Backtester) prepare(req Request) (strategy.Strategy, error) {
	s, err := bt.registry.Lookup(req.Strategy)
	if err != nil {
		return nil, err
	}
	if len(req.Params) > 0 {
		if _, err := s.SetParameters(req.Params); err != nil {
			return nil, fmt.Errorf("configuring %s: %w", req.Strategy, err)
		}
	}
	return s, nil
}

func (bt *Backtester) engine(symbol string) *engine.Engine {
	opts := bt.opts
	opts.Symbol = symbol
	return engine.New(opts, bt.log)
}

func (bt *Backtester) save(ctx context.Context, res *domain.BacktestResult) (string, error) {
	if bt.results == nil {
		return "", nil
	}
	id, err := bt.results.SaveResult(ctx, res)
	if err != nil {
		return "", fmt.Errorf("saving %s result: %w", res.Strategy, err)
	}
	bt.log.Debug("result saved", "id", id, "strategy", res.Strategy)
	return id, nil
}
