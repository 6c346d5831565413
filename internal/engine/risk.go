package engine

import "math"

// RiskManager enforces pre-trade sizing rules on what a strategy proposes.
type RiskManager struct {
	maxPositionPct float64
}

// NewRiskManager creates a RiskManager with the specified position cap.
//
//   - maxPositionPct: maximum fraction of balance allowed in a single
//     position (e.g. 0.10 for 10%). Values outside (0, 1] mean 1.
func NewRiskManager(maxPositionPct float64) *RiskManager {
	if maxPositionPct <= 0 || maxPositionPct > 1 || math.IsNaN(maxPositionPct) {
		maxPositionPct = 1
	}
	return &RiskManager{maxPositionPct: maxPositionPct}
}

// MaxPositionPct returns the effective position cap.
func (rm *RiskManager) MaxPositionPct() float64 { return rm.maxPositionPct }

// CheckSize returns the size the engine may actually use: the proposed size
// clamped to the cap, or 0 when the proposal is non-positive or not finite.
func (rm *RiskManager) CheckSize(size float64) float64 {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return 0
	}
	return math.Min(size, rm.maxPositionPct)
}
