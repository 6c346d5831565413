// Package engine replays a historical price series through a strategy,
// simulating positions, cash, and commissions, and derives the performance
// summary of the run.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"hindsight/internal/domain"
	"hindsight/internal/indicator"
	"hindsight/internal/strategy"
)

// ErrNoPrices is returned by Run when the price series is empty.
var ErrNoPrices = errors.New("no price data")

// StepObserver is invoked after every replay step, once the equity point for
// that step has been recorded. It must not retain or mutate p.
type StepObserver func(step int, snap domain.MarketSnapshot, p *Portfolio)

// Options configures a backtest run.
type Options struct {
	Symbol         string
	InitialBalance float64
	CommissionRate float64 // fraction of notional, e.g. 0.001
	RiskFreeRate   float64 // per-trade percent, subtracted in the Sharpe ratio
	Days           float64 // calendar days for annualization; <= 0 derives it from the series
	MaxPositionPct float64 // cap on a single position's size; <= 0 means 1

	OnStep StepObserver
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Symbol:         "BTCUSDT",
		InitialBalance: 10000,
		CommissionRate: 0.001,
		MaxPositionPct: 1,
	}
}

// Engine runs backtests. It holds only immutable configuration, so a single
// Engine may serve concurrent Run calls as long as each call uses its own
// strategy instance.
type Engine struct {
	opts Options
	risk *RiskManager
	log  *slog.Logger
}

// New creates an Engine. A nil logger falls back to slog.Default().
func New(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		opts: opts,
		risk: NewRiskManager(opts.MaxPositionPct),
		log:  logger.With("component", "engine"),
	}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Run replays prices through s and returns the complete result. The input
// slice is not modified; a stable-sorted copy is replayed instead.
//
// Each step first evaluates exits for every open position, then evaluates a
// single entry, then marks the portfolio to market. Positions still open at
// the end are closed at the last usable price with reason "backtest end".
// A step whose price is not a finite positive number is not shown to the
// strategy and is valued at the last usable price.
// Any strategy callback error aborts the run.
func (e *Engine) Run(prices []domain.PriceRecord, s strategy.Strategy) (*domain.BacktestResult, error) {
	if len(prices) == 0 {
		return nil, ErrNoPrices
	}

	series := slices.Clone(prices)
	slices.SortStableFunc(series, func(a, b domain.PriceRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	builder := indicator.NewSnapshotBuilder(series)
	p := NewPortfolio(e.opts.InitialBalance, e.opts.CommissionRate)

	// mark is the last usable price. Steps with an unusable price skip
	// the strategy and are valued at mark.
	var mark float64
	for i := range series {
		snap := builder.At(i)
		if !positiveFinite(snap.CurrentPrice) {
			e.log.Debug("skipping step with unusable price",
				"step", i,
				"timestamp", snap.Timestamp,
				"price", snap.CurrentPrice,
			)
			p.MarkToMarket(mark)
			if e.opts.OnStep != nil {
				e.opts.OnStep(i, snap, p)
			}
			continue
		}
		mark = snap.CurrentPrice

		if err := e.exitPass(p, s, snap); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, snap.Timestamp.Format(time.RFC3339), err)
		}
		if err := e.entryPass(p, s, snap); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, snap.Timestamp.Format(time.RFC3339), err)
		}
		p.MarkToMarket(snap.CurrentPrice)
		if e.opts.OnStep != nil {
			e.opts.OnStep(i, snap, p)
		}
	}

	first, last := series[0], series[len(series)-1]
	for len(p.Positions) > 0 {
		p.Close(len(p.Positions)-1, mark, last.Timestamp, domain.ExitReasonBacktestEnd)
	}

	span := last.Timestamp.Sub(first.Timestamp)
	perf := Analyze(p, e.opts, span)
	stats := s.Performance(p.Trades)

	days := e.opts.Days
	if days <= 0 {
		days = span.Hours() / 24
	}

	e.log.Debug("backtest finished",
		"strategy", s.Name(),
		"steps", len(series),
		"trades", perf.TotalTrades,
		"final_balance", p.Balance,
	)

	return &domain.BacktestResult{
		Strategy:       s.Name(),
		Symbol:         e.opts.Symbol,
		Parameters:     s.Parameters(),
		InitialBalance: e.opts.InitialBalance,
		FinalBalance:   p.Balance,
		StartTime:      first.Timestamp,
		EndTime:        last.Timestamp,
		Days:           days,
		Performance:    perf,
		Trades:         p.Trades,
		Equity:         p.Equity,
		Drawdown:       p.Drawdown,
		StrategyStats:  &stats,
	}, nil
}

// exitPass asks the strategy about every open position, then closes the
// flagged ones from the highest index down so earlier indices stay valid.
func (e *Engine) exitPass(p *Portfolio, s strategy.Strategy, snap domain.MarketSnapshot) error {
	type exit struct {
		idx   int
		price float64
		why   string
	}
	var exits []exit
	for idx, pos := range p.Positions {
		a, err := s.AnalyzeExit(pos, snap)
		if err != nil {
			return fmt.Errorf("analyzing exit: %w", err)
		}
		if !a.ShouldExit {
			continue
		}
		price := a.ExitPrice
		if !positiveFinite(price) {
			price = snap.CurrentPrice
		}
		exits = append(exits, exit{idx: idx, price: price, why: a.ExitReason})
	}

	for k := len(exits) - 1; k >= 0; k-- {
		x := exits[k]
		t := p.Close(x.idx, x.price, snap.Timestamp, x.why)
		e.log.Debug("position closed",
			"direction", t.Direction,
			"exit_price", t.ExitPrice,
			"pnl", t.PnL,
			"reason", t.ExitReason,
		)
	}
	return nil
}

// entryPass opens at most one new position for the step.
func (e *Engine) entryPass(p *Portfolio, s strategy.Strategy, snap domain.MarketSnapshot) error {
	signal := domain.Signal{Symbol: e.opts.Symbol, Timestamp: snap.Timestamp, Price: snap.CurrentPrice}
	if !s.CanExecute(signal, snap) {
		return nil
	}

	entry, err := s.AnalyzeEntry(signal, snap)
	if err != nil {
		return fmt.Errorf("analyzing entry: %w", err)
	}
	dir, ok := entry.Action.Direction()
	if !ok {
		return nil
	}

	account := strategy.Account{
		Balance:       p.Balance,
		Equity:        p.Value(snap.CurrentPrice),
		OpenPositions: len(p.Positions),
	}
	ps, err := s.PositionSize(entry, account, snap)
	if err != nil {
		return fmt.Errorf("sizing position: %w", err)
	}
	size := e.risk.CheckSize(ps.Size)
	if size <= 0 {
		return nil
	}

	price := entry.EntryPrice
	if !positiveFinite(price) {
		price = snap.CurrentPrice
	}
	qty := ps.Quantity
	if !positiveFinite(qty) || size < ps.Size {
		qty = p.Balance * size / price
	}
	if !positiveFinite(qty) {
		return nil
	}

	pos := p.Open(domain.Position{
		Symbol:     e.opts.Symbol,
		Direction:  dir,
		EntryPrice: price,
		Quantity:   qty,
		EntryTime:  snap.Timestamp,
		Confidence: entry.Confidence,
		Size:       size,
	}, snap.Volatility)

	e.log.Debug("position opened",
		"direction", pos.Direction,
		"entry_price", pos.EntryPrice,
		"quantity", pos.Quantity,
		"size", pos.Size,
		"reason", entry.Reason,
	)
	return nil
}

// positiveFinite reports whether v is a finite, strictly positive number.
func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
