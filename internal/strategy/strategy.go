// Package strategy defines the Strategy contract consumed by the backtest
// engine and provides a Registry for looking strategies up by name.
package strategy

import (
	"errors"
	"fmt"
	"sort"

	"hindsight/internal/domain"
)

// ErrUnknownStrategy is returned when a registry lookup names a strategy
// that was never registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy is the interface that all trading strategies must implement. The
// engine calls CanExecute, AnalyzeEntry, AnalyzeExit, and PositionSize once
// per step; none of them may retain the snapshot.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// CanExecute reports whether the strategy may open a position at this
	// step. It must not mutate state.
	CanExecute(signal domain.Signal, snap domain.MarketSnapshot) bool

	// AnalyzeEntry decides whether to go long, short, or hold.
	AnalyzeEntry(signal domain.Signal, snap domain.MarketSnapshot) (EntryAnalysis, error)

	// AnalyzeExit decides whether an open position should be closed.
	AnalyzeExit(pos domain.Position, snap domain.MarketSnapshot) (ExitAnalysis, error)

	// PositionSize turns an entry analysis into a balance fraction and a
	// quantity. A size <= 0 means do not open.
	PositionSize(entry EntryAnalysis, account Account, snap domain.MarketSnapshot) (PositionSize, error)

	// Performance summarises a trade ledger the way this strategy sees it.
	Performance(trades []domain.Trade) domain.StrategyStats

	// Parameters returns a copy of the current effective parameters.
	Parameters() Parameters

	// SetParameters merges a partial update into the current parameters and
	// returns the new effective set.
	SetParameters(update Parameters) (Parameters, error)
}

// EntryAnalysis is the outcome of Strategy.AnalyzeEntry.
type EntryAnalysis struct {
	Action           domain.Action
	EntryPrice       float64
	Confidence       float64 // 0-1
	RiskReward       float64
	ExpectedDuration float64 // seconds
	Reason           string
}

// ExitAnalysis is the outcome of Strategy.AnalyzeExit. ProfitLoss is the
// strategy's own view of the gross price change, in percent.
type ExitAnalysis struct {
	ShouldExit bool
	ExitPrice  float64
	ExitReason string
	ProfitLoss float64
	HoldTime   float64 // seconds
}

// Account is the read-only account view passed to PositionSize.
type Account struct {
	Balance       float64
	Equity        float64
	OpenPositions int
}

// PositionSize is the outcome of Strategy.PositionSize.
type PositionSize struct {
	Size     float64 // fraction of balance, 0-1
	Quantity float64
}

// Registry holds a named collection of strategies for lookup and enumeration.
// It is built once by the caller and passed to the components that need it.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name(). A later
// registration under the same name replaces the earlier one.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Lookup retrieves a strategy by name, returning an error wrapping
// ErrUnknownStrategy when it is not registered.
func (r *Registry) Lookup(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownStrategy, name, r.List())
	}
	return s, nil
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
