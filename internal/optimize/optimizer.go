// Package optimize searches a strategy's parameter space by exhaustive grid
// search and compares several strategies over the same price series.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"hindsight/internal/domain"
	"hindsight/internal/engine"
	"hindsight/internal/strategy"
)

// ErrEmptyGrid is returned when a grid has no axes or an axis has no values.
var ErrEmptyGrid = errors.New("empty parameter grid")

// Axis is one named parameter and the candidate values to try for it.
type Axis struct {
	Name   string    `yaml:"name" json:"name"`
	Values []float64 `yaml:"values" json:"values"`
}

// Grid is an ordered list of axes. Combinations are enumerated with the last
// axis varying fastest.
type Grid []Axis

// Validate reports ErrEmptyGrid for a grid that yields no combinations.
func (g Grid) Validate() error {
	if len(g) == 0 {
		return ErrEmptyGrid
	}
	for _, a := range g {
		if len(a.Values) == 0 {
			return fmt.Errorf("%w: axis %q has no values", ErrEmptyGrid, a.Name)
		}
	}
	return nil
}

// Size returns the number of combinations in the grid.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, a := range g {
		n *= len(a.Values)
	}
	return n
}

// Combinations returns every point of the Cartesian product in enumeration
// order.
func (g Grid) Combinations() []strategy.Parameters {
	size := g.Size()
	out := make([]strategy.Parameters, 0, size)
	idx := make([]int, len(g))
	for range size {
		combo := make(strategy.Parameters, len(g))
		for i, a := range g {
			combo[a.Name] = a.Values[idx[i]]
		}
		out = append(out, combo)

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(g[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// Evaluation is the outcome of one grid point.
type Evaluation struct {
	Parameters  strategy.Parameters `json:"parameters"`
	SharpeRatio float64             `json:"sharpeRatio"`
	TotalReturn float64             `json:"totalReturn"`
	TotalTrades int                 `json:"totalTrades"`
	Err         error               `json:"-"`
}

// Outcome is the result of a grid search. Best is nil when no combination
// produced a result.
type Outcome struct {
	Strategy       string                 `json:"strategy"`
	BestParameters strategy.Parameters    `json:"bestParameters,omitempty"`
	BestSharpe     float64                `json:"bestSharpe"`
	Best           *domain.BacktestResult `json:"best,omitempty"`
	Evaluations    []Evaluation           `json:"evaluations"`
}

// Optimizer runs a grid search against an Engine.
type Optimizer struct {
	eng *engine.Engine
	log *slog.Logger
}

// New creates an Optimizer. A nil logger falls back to slog.Default().
func New(eng *engine.Engine, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{eng: eng, log: logger.With("component", "optimizer")}
}

// Search applies every grid combination to s in turn, runs a full backtest
// for each, and keeps the one with the highest Sharpe ratio. Ties keep the
// combination evaluated first. A failing combination is recorded in its
// Evaluation and does not stop the search.
//
// On return s is configured with the best combination, or with its original
// parameters when no combination succeeded or ctx was cancelled. If the
// original parameters cannot be put back, Search returns that error. ctx is
// checked between runs only.
func (o *Optimizer) Search(ctx context.Context, s strategy.Strategy, grid Grid, prices []domain.PriceRecord) (*Outcome, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	original := s.Parameters()
	out := &Outcome{
		Strategy:    s.Name(),
		BestSharpe:  math.Inf(-1),
		Evaluations: make([]Evaluation, 0, grid.Size()),
	}

	for _, combo := range grid.Combinations() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(err, o.restore(s, original))
		}

		ev := Evaluation{Parameters: combo}
		if _, err := s.SetParameters(combo); err != nil {
			ev.Err = err
			out.Evaluations = append(out.Evaluations, ev)
			continue
		}

		res, err := o.eng.Run(prices, s)
		if err != nil {
			ev.Err = err
			out.Evaluations = append(out.Evaluations, ev)
			o.log.Debug("combination failed", "params", combo, "error", err)
			continue
		}
		ev.SharpeRatio = res.SharpeRatio
		ev.TotalReturn = res.TotalReturn
		ev.TotalTrades = res.TotalTrades
		out.Evaluations = append(out.Evaluations, ev)
		o.log.Debug("combination evaluated", "params", combo, "sharpe", res.SharpeRatio, "trades", res.TotalTrades)

		if res.SharpeRatio > out.BestSharpe {
			out.BestSharpe = res.SharpeRatio
			out.BestParameters = combo
			out.Best = res
		}
	}

	if out.Best == nil {
		if err := o.restore(s, original); err != nil {
			return nil, err
		}
		out.BestSharpe = 0
		o.log.Warn("no combination produced a result", "strategy", s.Name(), "combinations", len(out.Evaluations))
		return out, nil
	}

	if _, err := s.SetParameters(out.BestParameters); err != nil {
		return nil, fmt.Errorf("applying best parameters: %w", err)
	}
	o.log.Info("optimization finished",
		"strategy", s.Name(),
		"combinations", len(out.Evaluations),
		"best_sharpe", out.BestSharpe,
		"best_params", out.BestParameters,
	)
	return out, nil
}

// restore puts the strategy back on its parameters from before the search.
func (o *Optimizer) restore(s strategy.Strategy, original strategy.Parameters) error {
	if _, err := s.SetParameters(original); err != nil {
		o.log.Warn("restoring parameters failed", "strategy", s.Name(), "error", err)
		return fmt.Errorf("restoring %s parameters: %w", s.Name(), err)
	}
	return nil
}
