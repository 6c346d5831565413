// Package builtins provides the built-in strategy implementations that ship
// with hindsight: one momentum strategy per holding timeframe, plus a
// strategy that rejects every entry.
package builtins

import (
	"math"
	"sync"

	"hindsight/internal/domain"
	"hindsight/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Timeframe)(nil)

// Strategy names registered by Register.
const (
	NameScalping     = "scalping"
	NameDayTrading   = "day-trading"
	NameSwingTrading = "swing-trading"
	NameLongTerm     = "long-term"
	NameReject       = "reject"
)

// RSI bounds outside of which new entries are not chased.
const (
	rsiOverbought = 70
	rsiOversold   = 30
)

// Timeframe is a trend-following strategy tuned by its parameters for a
// given holding period. It goes long in an up trend confirmed by a
// non-negative MACD histogram and short in a confirmed down trend, and exits
// on target, stop, or maximum hold time.
type Timeframe struct {
	name string

	mu     sync.RWMutex
	params strategy.Parameters
}

func newTimeframe(name string, params strategy.Parameters) *Timeframe {
	return &Timeframe{name: name, params: params}
}

// NewScalping creates a strategy for minute-scale holds.
func NewScalping() *Timeframe {
	return newTimeframe(NameScalping, strategy.Parameters{
		strategy.ParamTargetProfit:  0.5,
		strategy.ParamStopLoss:      0.3,
		strategy.ParamMaxHoldTime:   15 * 60,
		strategy.ParamMinConfidence: 0.6,
		strategy.ParamRiskPerTrade:  0.02,
		strategy.ParamMaxVolatility: 2,
	})
}

// NewDayTrading creates a strategy for intraday holds.
func NewDayTrading() *Timeframe {
	return newTimeframe(NameDayTrading, strategy.Parameters{
		strategy.ParamTargetProfit:  2,
		strategy.ParamStopLoss:      1,
		strategy.ParamMaxHoldTime:   8 * 60 * 60,
		strategy.ParamMinConfidence: 0.55,
		strategy.ParamRiskPerTrade:  0.05,
		strategy.ParamMaxVolatility: 5,
	})
}

// NewSwingTrading creates a strategy for multi-day holds.
func NewSwingTrading() *Timeframe {
	return newTimeframe(NameSwingTrading, strategy.Parameters{
		strategy.ParamTargetProfit:  8,
		strategy.ParamStopLoss:      4,
		strategy.ParamMaxHoldTime:   7 * 24 * 60 * 60,
		strategy.ParamMinConfidence: 0.5,
		strategy.ParamRiskPerTrade:  0.1,
		strategy.ParamMaxVolatility: 10,
	})
}

// NewLongTerm creates a strategy for holds of several months.
func NewLongTerm() *Timeframe {
	return newTimeframe(NameLongTerm, strategy.Parameters{
		strategy.ParamTargetProfit:  25,
		strategy.ParamStopLoss:      10,
		strategy.ParamMaxHoldTime:   90 * 24 * 60 * 60,
		strategy.ParamMinConfidence: 0.5,
		strategy.ParamRiskPerTrade:  0.2,
		strategy.ParamMaxVolatility: 20,
	})
}

// Name returns the strategy identifier.
func (s *Timeframe) Name() string { return s.name }

// Parameters returns a copy of the current parameters.
func (s *Timeframe) Parameters() strategy.Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.Clone()
}

// SetParameters merges update into the current parameters. Unknown names
// are rejected and leave the strategy unchanged.
func (s *Timeframe) SetParameters(update strategy.Parameters) (strategy.Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, err := s.params.Merge(update)
	if err != nil {
		return nil, err
	}
	s.params = merged
	return merged.Clone(), nil
}

func (s *Timeframe) param(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params[name]
}

// CanExecute allows entries while the market is priced and volatility stays
// under the configured ceiling.
func (s *Timeframe) CanExecute(_ domain.Signal, snap domain.MarketSnapshot) bool {
	return snap.CurrentPrice > 0 && snap.Volatility <= s.param(strategy.ParamMaxVolatility)
}

// AnalyzeEntry follows the snapshot trend when RSI and MACD agree with it.
func (s *Timeframe) AnalyzeEntry(_ domain.Signal, snap domain.MarketSnapshot) (strategy.EntryAnalysis, error) {
	target := s.param(strategy.ParamTargetProfit)
	stop := s.param(strategy.ParamStopLoss)

	entry := strategy.EntryAnalysis{
		Action:           domain.ActionHold,
		EntryPrice:       snap.CurrentPrice,
		ExpectedDuration: s.param(strategy.ParamMaxHoldTime) / 2,
	}
	if stop > 0 {
		entry.RiskReward = target / stop
	}

	switch {
	case snap.Trend.Direction == domain.TrendUp && snap.RSI < rsiOverbought && snap.MACD.Histogram >= 0:
		entry.Action = domain.ActionBuy
		entry.Reason = "uptrend"
	case snap.Trend.Direction == domain.TrendDown && snap.RSI > rsiOversold && snap.MACD.Histogram <= 0:
		entry.Action = domain.ActionSell
		entry.Reason = "downtrend"
	default:
		return entry, nil
	}
	entry.Confidence = math.Min(1, 0.5+snap.Trend.Strength/2)
	return entry, nil
}

// AnalyzeExit closes on the profit target, the stop loss, a breach of the
// position's own stop/take-profit levels, or when the hold time runs out.
func (s *Timeframe) AnalyzeExit(pos domain.Position, snap domain.MarketSnapshot) (strategy.ExitAnalysis, error) {
	price := snap.CurrentPrice
	sign := pos.Direction.Sign()

	exit := strategy.ExitAnalysis{
		ExitPrice: price,
		HoldTime:  snap.Timestamp.Sub(pos.EntryTime).Seconds(),
	}
	if pos.EntryPrice > 0 {
		exit.ProfitLoss = sign * (price - pos.EntryPrice) / pos.EntryPrice * 100
	}

	switch {
	case exit.ProfitLoss >= s.param(strategy.ParamTargetProfit):
		exit.ExitReason = "target_profit"
	case exit.ProfitLoss <= -s.param(strategy.ParamStopLoss):
		exit.ExitReason = "stop_loss"
	case hasLevels(pos) && sign*(price-pos.TakeProfit) >= 0:
		exit.ExitReason = "take_profit"
	case hasLevels(pos) && sign*(price-pos.StopLoss) <= 0:
		exit.ExitReason = "stop_loss"
	case exit.HoldTime >= s.param(strategy.ParamMaxHoldTime):
		exit.ExitReason = "max_hold_time"
	default:
		return exit, nil
	}
	exit.ShouldExit = true
	return exit, nil
}

// hasLevels reports whether the engine attached stop/take-profit levels that
// are distinct from the entry price.
func hasLevels(pos domain.Position) bool {
	return pos.StopLoss > 0 && pos.TakeProfit > 0 && pos.StopLoss != pos.EntryPrice
}

// PositionSize risks a confidence-weighted share of risk_per_trade, or
// nothing when confidence is under the minimum.
func (s *Timeframe) PositionSize(entry strategy.EntryAnalysis, account strategy.Account, snap domain.MarketSnapshot) (strategy.PositionSize, error) {
	if entry.Confidence < s.param(strategy.ParamMinConfidence) {
		return strategy.PositionSize{}, nil
	}
	price := entry.EntryPrice
	if price <= 0 {
		price = snap.CurrentPrice
	}
	if price <= 0 || account.Balance <= 0 {
		return strategy.PositionSize{}, nil
	}

	size := math.Min(1, s.param(strategy.ParamRiskPerTrade)*entry.Confidence)
	return strategy.PositionSize{
		Size:     size,
		Quantity: account.Balance * size / price,
	}, nil
}

// Performance summarises trades by exit reason and profit-loss.
func (s *Timeframe) Performance(trades []domain.Trade) domain.StrategyStats {
	return summarize(trades)
}
