package engine

import (
	"math"
	"slices"
	"time"

	"hindsight/internal/domain"
)

// Stop-loss and take-profit distances, as multiples of the snapshot
// volatility (itself a percentage).
const (
	stopLossVolMultiple   = 0.5
	takeProfitVolMultiple = 1.5
)

// Portfolio is the mutable state of a single backtest run. It is created by
// Engine.Run, owned by that call alone, and never shared between runs.
//
// Cash is settled with signed exposure: opening debits sign*price*quantity
// plus the entry commission, closing credits sign*entryPrice*quantity plus
// the net PnL, and marking to market values each position at
// sign*price*quantity (sign is +1 for BUY, -1 for SELL).
type Portfolio struct {
	InitialBalance float64
	Balance        float64
	Positions      []domain.Position
	Trades         []domain.Trade
	Equity         []float64
	Drawdown       []float64
	MaxDrawdown    float64

	commissionRate float64
	peak           float64
}

// NewPortfolio creates an empty portfolio holding initialBalance in cash.
func NewPortfolio(initialBalance, commissionRate float64) *Portfolio {
	return &Portfolio{
		InitialBalance: initialBalance,
		Balance:        initialBalance,
		Positions:      make([]domain.Position, 0),
		Trades:         make([]domain.Trade, 0),
		commissionRate: commissionRate,
	}
}

// Open records a new position and debits its notional and the entry
// commission (balance * size * commissionRate, on the pre-trade balance).
// Stop-loss and take-profit levels are derived from volatility.
func (p *Portfolio) Open(pos domain.Position, volatility float64) domain.Position {
	pos.EntryCommission = p.Balance * pos.Size * p.commissionRate
	pos.StopLoss, pos.TakeProfit = exitLevels(pos.Direction, pos.EntryPrice, volatility)

	p.Balance -= pos.Direction.Sign()*pos.EntryPrice*pos.Quantity + pos.EntryCommission
	p.Positions = append(p.Positions, pos)
	return pos
}

// exitLevels returns direction-aware stop-loss and take-profit prices
// volatility*0.5% and volatility*1.5% away from the entry price.
func exitLevels(dir domain.Direction, entryPrice, volatility float64) (stopLoss, takeProfit float64) {
	sign := dir.Sign()
	stopLoss = entryPrice * (1 - sign*volatility*stopLossVolMultiple/100)
	takeProfit = entryPrice * (1 + sign*volatility*takeProfitVolMultiple/100)
	return stopLoss, takeProfit
}

// Close settles the position at index idx at exitPrice, appends the
// resulting Trade, and removes the position. The exit commission is
// |grossPnL| * commissionRate and is netted out of the recorded PnL.
func (p *Portfolio) Close(idx int, exitPrice float64, exitTime time.Time, reason string) domain.Trade {
	pos := p.Positions[idx]
	sign := pos.Direction.Sign()

	gross := sign * (exitPrice - pos.EntryPrice) * pos.Quantity
	commission := math.Abs(gross) * p.commissionRate
	net := gross - commission

	profitLoss := 0.0
	if notional := pos.EntryPrice * pos.Quantity; notional != 0 {
		profitLoss = net / notional * 100
	}

	p.Balance += sign*pos.EntryPrice*pos.Quantity + net

	trade := domain.Trade{
		Symbol:          pos.Symbol,
		Direction:       pos.Direction,
		EntryPrice:      pos.EntryPrice,
		ExitPrice:       exitPrice,
		Quantity:        pos.Quantity,
		EntryTime:       pos.EntryTime,
		ExitTime:        exitTime,
		HoldTime:        exitTime.Sub(pos.EntryTime),
		ProfitLoss:      profitLoss,
		PnL:             net,
		Commission:      commission,
		EntryCommission: pos.EntryCommission,
		ExitReason:      reason,
		Confidence:      pos.Confidence,
	}
	p.Trades = append(p.Trades, trade)
	p.Positions = slices.Delete(p.Positions, idx, idx+1)
	return trade
}

// Value returns balance plus the mark-to-market value of every open
// position at price.
func (p *Portfolio) Value(price float64) float64 {
	equity := p.Balance
	for _, pos := range p.Positions {
		equity += pos.Direction.Sign() * price * pos.Quantity
	}
	return equity
}

// MarkToMarket appends the current equity and drawdown to the curves and
// updates the running peak and maximum drawdown. Drawdown is 0 while the
// peak is not positive.
func (p *Portfolio) MarkToMarket(price float64) float64 {
	equity := p.Value(price)
	if len(p.Equity) == 0 || equity > p.peak {
		p.peak = equity
	}
	p.Equity = append(p.Equity, equity)

	drawdown := 0.0
	if p.peak > 0 {
		drawdown = (p.peak - equity) / p.peak
	}
	p.Drawdown = append(p.Drawdown, drawdown)
	if drawdown > p.MaxDrawdown {
		p.MaxDrawdown = drawdown
	}
	return equity
}
