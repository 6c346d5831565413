package engine

import (
	"math"
	"time"

	"hindsight/internal/domain"
)

// Analyze derives the performance summary of a finished run from its
// trades, final balance, and equity curve. span is the time covered by the
// price series and is used for annualization when opts.Days is not set.
//
// A run without trades reports all-zero metrics. Ratios whose denominator
// is zero (Sharpe with no dispersion, profit factor with no losses) are 0.
func Analyze(p *Portfolio, opts Options, span time.Duration) domain.Performance {
	n := len(p.Trades)
	perf := domain.Performance{TotalTrades: n}
	if n == 0 {
		return perf
	}

	var (
		sumPL, sumWinPL, sumLossPL float64
		grossWin, grossLoss        float64
		totalHold                  time.Duration
	)
	for _, t := range p.Trades {
		sumPL += t.ProfitLoss
		totalHold += t.HoldTime
		switch {
		case t.ProfitLoss > 0:
			perf.WinningTrades++
			sumWinPL += t.ProfitLoss
			grossWin += t.PnL
		case t.ProfitLoss < 0:
			perf.LosingTrades++
			sumLossPL += t.ProfitLoss
			grossLoss += t.PnL
		}
	}

	perf.WinRate = float64(perf.WinningTrades) / float64(n) * 100
	if p.InitialBalance != 0 {
		perf.TotalReturn = (p.Balance - p.InitialBalance) / p.InitialBalance * 100
	}

	days := opts.Days
	if days <= 0 {
		days = span.Hours() / 24
	}
	perf.AnnualizedReturn = annualize(perf.TotalReturn, days)

	mean := sumPL / float64(n)
	var variance float64
	for _, t := range p.Trades {
		d := t.ProfitLoss - mean
		variance += d * d
	}
	if std := math.Sqrt(variance / float64(n)); std > 0 {
		perf.SharpeRatio = (mean - opts.RiskFreeRate) / std
	}

	if grossLoss != 0 {
		perf.ProfitFactor = grossWin / math.Abs(grossLoss)
	}
	if perf.WinningTrades > 0 {
		perf.AvgWin = sumWinPL / float64(perf.WinningTrades)
	}
	if perf.LosingTrades > 0 {
		perf.AvgLoss = sumLossPL / float64(perf.LosingTrades)
	}
	perf.AvgHoldTime = totalHold / time.Duration(n)
	perf.MaxDrawdown = p.MaxDrawdown * 100

	return perf
}

// annualize converts a percent total return over days into an annualized
// ratio. It returns 0 when days is not positive or the result is not finite
// (a loss beyond 100%, or an overflow over a very short span).
func annualize(totalReturnPct, days float64) float64 {
	if days <= 0 {
		return 0
	}
	r := math.Pow(1+totalReturnPct/100, 365/days) - 1
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
