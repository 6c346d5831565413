package builtins

import (
	"hindsight/internal/domain"
	"hindsight/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = Reject{}

// Reject never opens a position. It stands in for timeframes that should be
// traded through the same pipeline without taking risk.
type Reject struct{}

// NewReject creates a Reject strategy.
func NewReject() Reject { return Reject{} }

// Name returns "reject".
func (Reject) Name() string { return NameReject }

// CanExecute always returns false.
func (Reject) CanExecute(domain.Signal, domain.MarketSnapshot) bool { return false }

// AnalyzeEntry always holds.
func (Reject) AnalyzeEntry(_ domain.Signal, snap domain.MarketSnapshot) (strategy.EntryAnalysis, error) {
	return strategy.EntryAnalysis{Action: domain.ActionHold, EntryPrice: snap.CurrentPrice, Reason: "rejected"}, nil
}

// AnalyzeExit closes anything it is handed.
func (Reject) AnalyzeExit(_ domain.Position, snap domain.MarketSnapshot) (strategy.ExitAnalysis, error) {
	return strategy.ExitAnalysis{ShouldExit: true, ExitPrice: snap.CurrentPrice, ExitReason: "rejected"}, nil
}

// PositionSize always returns a zero size.
func (Reject) PositionSize(strategy.EntryAnalysis, strategy.Account, domain.MarketSnapshot) (strategy.PositionSize, error) {
	return strategy.PositionSize{}, nil
}

// Performance summarises trades like every other built-in.
func (Reject) Performance(trades []domain.Trade) domain.StrategyStats { return summarize(trades) }

// Parameters returns an empty set.
func (Reject) Parameters() strategy.Parameters { return strategy.Parameters{} }

// SetParameters rejects any named parameter.
func (Reject) SetParameters(update strategy.Parameters) (strategy.Parameters, error) {
	return strategy.Parameters{}.Merge(update)
}
