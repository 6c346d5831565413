package optimize

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"hindsight/internal/domain"
	"hindsight/internal/engine"
	"hindsight/internal/strategy"
)

// Comparison is one strategy's entry in a Compare result. Exactly one of
// Result and Err is set.
type Comparison struct {
	Result *domain.BacktestResult
	Err    error
}

// Compare runs one full backtest per named strategy over the same prices and
// returns the results keyed by strategy name. An empty names list compares
// every registered strategy.
//
// Every name is resolved before any run starts, so an unknown name fails
// the whole call with strategy.ErrUnknownStrategy. After that, a failing or
// panicking strategy is recorded in its own entry and its siblings still
// run. At most workers backtests run at once; workers < 1 means 1.
func Compare(
	ctx context.Context,
	reg *strategy.Registry,
	names []string,
	eng *engine.Engine,
	prices []domain.PriceRecord,
	workers int,
) (map[string]Comparison, error) {
	if len(names) == 0 {
		names = reg.List()
	}
	names = slices.Compact(slices.Sorted(slices.Values(names)))

	strategies := make([]strategy.Strategy, len(names))
	for i, name := range names {
		s, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		strategies[i] = s
	}

	var (
		mu  sync.Mutex
		out = make(map[string]Comparison, len(names))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, name := range names {
		s := strategies[i]
		g.Go(func() error {
			var c Comparison
			if err := gctx.Err(); err != nil {
				c.Err = err
			} else {
				c.Result, c.Err = runRecovered(eng, prices, s)
			}
			mu.Lock()
			out[name] = c
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return out, ctx.Err()
}

// runRecovered runs a backtest and converts a strategy panic into an error.
func runRecovered(eng *engine.Engine, prices []domain.PriceRecord, s strategy.Strategy) (res *domain.BacktestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return eng.Run(prices, s)
}
