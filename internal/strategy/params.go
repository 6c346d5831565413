package strategy

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

// ErrUnknownParameter is returned when an update names a parameter the
// strategy does not define.
var ErrUnknownParameter = errors.New("unknown parameter")

// Well-known parameter names shared by the built-in strategies.
const (
	ParamTargetProfit  = "target_profit"  // percent
	ParamStopLoss      = "stop_loss"      // percent
	ParamMaxHoldTime   = "max_hold_time"  // seconds
	ParamMinConfidence = "min_confidence" // 0-1
	ParamRiskPerTrade  = "risk_per_trade" // fraction of balance
	ParamMaxVolatility = "max_volatility" // percent
)

// Parameters is a named set of numeric strategy parameters. It is used both
// as a full configuration and as a partial update.
type Parameters map[string]float64

// Clone returns an independent copy of p.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return Parameters{}
	}
	return maps.Clone(p)
}

// Names returns the parameter names in sorted order.
func (p Parameters) Names() []string {
	return slices.Sorted(maps.Keys(p))
}

// Merge applies update on top of p and returns the new effective set. p is
// left untouched. Keys absent from p and non-finite values are rejected and
// nothing is applied.
func (p Parameters) Merge(update Parameters) (Parameters, error) {
	for _, name := range update.Names() {
		if _, ok := p[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
		}
		if v := update[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("parameter %q: non-finite value %v", name, v)
		}
	}
	merged := p.Clone()
	for name, v := range update {
		merged[name] = v
	}
	return merged, nil
}
