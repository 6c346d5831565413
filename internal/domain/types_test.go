package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify PriceRecord can be instantiated with zero values.
	rec := PriceRecord{}
	if !rec.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value PriceRecord")
	}
	if rec.Price != 0 || rec.Volume != 0 {
		t.Error("expected zero Price/Volume for zero-value PriceRecord")
	}

	// Verify Trade can be instantiated with zero values.
	trade := Trade{}
	if trade.Symbol != "" || trade.ExitReason != "" {
		t.Error("expected empty Symbol/ExitReason for zero-value Trade")
	}
	if trade.ProfitLoss != 0 || trade.PnL != 0 {
		t.Error("expected zero ProfitLoss/PnL for zero-value Trade")
	}

	// Verify enum constants are defined correctly.
	if DirectionBuy != "BUY" || DirectionSell != "SELL" {
		t.Error("Direction constants have unexpected values")
	}
	if TrendUp != "up" || TrendDown != "down" || TrendNeutral != "neutral" {
		t.Error("TrendDirection constants have unexpected values")
	}

	// Verify structs can be constructed with real values.
	now := time.Now()
	pos := Position{
		Symbol:     "AAPL",
		Direction:  DirectionBuy,
		EntryPrice: 185.5,
		Quantity:   10,
		EntryTime:  now,
	}
	if pos.Direction != DirectionBuy {
		t.Errorf("pos.Direction = %q, want %q", pos.Direction, DirectionBuy)
	}
}

func TestDirectionSign(t *testing.T) {
	if got := DirectionBuy.Sign(); got != 1 {
		t.Errorf("DirectionBuy.Sign() = %v, want 1", got)
	}
	if got := DirectionSell.Sign(); got != -1 {
		t.Errorf("DirectionSell.Sign() = %v, want -1", got)
	}
}

func TestActionDirection(t *testing.T) {
	if d, ok := ActionBuy.Direction(); !ok || d != DirectionBuy {
		t.Errorf("ActionBuy.Direction() = %q, %v", d, ok)
	}
	if d, ok := ActionSell.Direction(); !ok || d != DirectionSell {
		t.Errorf("ActionSell.Direction() = %q, %v", d, ok)
	}
	if _, ok := ActionHold.Direction(); ok {
		t.Error("ActionHold.Direction() should report no direction")
	}
}

func TestBacktestResultJSONFieldNames(t *testing.T) {
	res := BacktestResult{
		Strategy:    "day-trading",
		Performance: Performance{MaxDrawdown: 12.5, SharpeRatio: 1.2},
		Drawdown:    []float64{0, 0.125},
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	// Performance fields are flattened into the top-level record.
	for _, key := range []string{"maxDrawdown", "sharpeRatio", "winRate", "profitFactor", "drawdown", "equity", "trades"} {
		if _, ok := m[key]; !ok {
			t.Errorf("marshalled result missing key %q", key)
		}
	}
	if m["maxDrawdown"] != 12.5 {
		t.Errorf("maxDrawdown = %v, want 12.5", m["maxDrawdown"])
	}
}
