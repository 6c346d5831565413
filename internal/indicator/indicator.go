// Package indicator computes windowed technical indicators over a price
// series and assembles them into per-step market snapshots.
//
// Every function takes the full close-price slice, the index i of the step
// being evaluated, and a period. Only prices[max(0, i-period+1) .. i] are
// considered, so results never depend on data after i or on call order.
// Windows too short to compute a value yield the neutral default documented
// on each function.
package indicator

import (
	"math"

	"hindsight/internal/domain"
)

// Standard periods used by the snapshot builder.
const (
	WindowPeriod     = 20
	RSIPeriod        = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	BollingerPeriod  = 20
	BollingerStdDev  = 2.0
)

// Trend classification threshold on the relative window change.
const trendThreshold = 0.02

// window returns the slice of prices ending at i (inclusive) with at most
// period elements. Out-of-range indices are clamped; a non-positive period
// or an empty series yields an empty window.
func window(prices []float64, i, period int) []float64 {
	if len(prices) == 0 || period <= 0 || i < 0 {
		return nil
	}
	if i >= len(prices) {
		i = len(prices) - 1
	}
	start := max(0, i-period+1)
	return prices[start : i+1]
}

// mean returns the arithmetic mean of values, or 0 when empty.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev returns the population standard deviation of values around m.
func stdDev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	squareSum := 0.0
	for _, v := range values {
		diff := v - m
		squareSum += diff * diff
	}
	return math.Sqrt(squareSum / float64(len(values)))
}

// ---------------------------------------------------------------------------
// Indicators
// ---------------------------------------------------------------------------

// Volatility returns the standard deviation of simple period-over-period
// returns across the window, as a percentage. Returns 0 with fewer than two
// prices. Steps from a zero price are skipped.
func Volatility(prices []float64, i, period int) float64 {
	w := window(prices, i, period)
	if len(w) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(w)-1)
	for k := 1; k < len(w); k++ {
		if w[k-1] == 0 {
			continue
		}
		returns = append(returns, (w[k]-w[k-1])/w[k-1])
	}
	return stdDev(returns, mean(returns)) * 100
}

// Support returns 98% of the window low, or 0 for an empty window.
func Support(prices []float64, i, period int) float64 {
	w := window(prices, i, period)
	if len(w) == 0 {
		return 0
	}
	low := w[0]
	for _, p := range w[1:] {
		low = math.Min(low, p)
	}
	return low * 0.98
}

// Resistance returns 102% of the window high, or 0 for an empty window.
func Resistance(prices []float64, i, period int) float64 {
	w := window(prices, i, period)
	if len(w) == 0 {
		return 0
	}
	high := w[0]
	for _, p := range w[1:] {
		high = math.Max(high, p)
	}
	return high * 1.02
}

// TrendOf compares the first and last price of the window. A change above
// +2% is up, below -2% is down, anything else neutral; strength is ten times
// the absolute relative change. Returns neutral/0 with fewer than two prices
// or a zero first price.
func TrendOf(prices []float64, i, period int) domain.Trend {
	w := window(prices, i, period)
	if len(w) < 2 || w[0] == 0 {
		return domain.Trend{Direction: domain.TrendNeutral}
	}
	change := (w[len(w)-1] - w[0]) / w[0]

	direction := domain.TrendNeutral
	switch {
	case change > trendThreshold:
		direction = domain.TrendUp
	case change < -trendThreshold:
		direction = domain.TrendDown
	}
	return domain.Trend{
		Direction: direction,
		Strength:  math.Abs(change) * 10,
	}
}

// RSI returns the relative strength index from the average gain and
// average loss of the price changes inside the window. With fewer than two
// prices, or no movement at all, it returns 50. With gains but no losses it
// returns 100.
func RSI(prices []float64, i, period int) float64 {
	w := window(prices, i, period)
	if len(w) < 2 {
		return 50
	}

	var gains, losses float64
	for k := 1; k < len(w); k++ {
		change := w[k] - w[k-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	n := float64(len(w) - 1)
	avgGain, avgLoss := gains/n, losses/n

	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// EMA returns the exponential moving average of the window, seeded with its
// first value and smoothed with multiplier 2/(period+1). Returns 0 for an
// empty window.
func EMA(prices []float64, i, period int) float64 {
	w := window(prices, i, period)
	if len(w) == 0 {
		return 0
	}
	multiplier := 2.0 / float64(period+1)
	ema := w[0]
	for _, p := range w[1:] {
		ema = (p-ema)*multiplier + ema
	}
	return ema
}

// MACDOf returns EMA(12) - EMA(26) at i, the EMA(9) signal line of that MACD
// series, and their difference.
func MACDOf(prices []float64, i int) domain.MACD {
	if len(prices) == 0 || i < 0 {
		return domain.MACD{}
	}
	if i >= len(prices) {
		i = len(prices) - 1
	}

	start := max(0, i-MACDSignalPeriod+1)
	line := make([]float64, 0, i-start+1)
	for j := start; j <= i; j++ {
		line = append(line, EMA(prices, j, MACDFastPeriod)-EMA(prices, j, MACDSlowPeriod))
	}

	macd := line[len(line)-1]
	signal := EMA(line, len(line)-1, MACDSignalPeriod)
	return domain.MACD{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}

// BollingerOf returns the SMA of the window plus and minus two population
// standard deviations. It requires a full window and returns all-zero bands
// otherwise.
func BollingerOf(prices []float64, i, period int) domain.Bollinger {
	w := window(prices, i, period)
	if period <= 0 || len(w) < period {
		return domain.Bollinger{}
	}
	middle := mean(w)
	sd := stdDev(w, middle)
	return domain.Bollinger{
		Upper:   middle + BollingerStdDev*sd,
		Middle:  middle,
		Lower:   middle - BollingerStdDev*sd,
		Current: w[len(w)-1],
	}
}

// SMA returns the arithmetic mean of the window, or 0 for an empty window.
func SMA(prices []float64, i, period int) float64 {
	return mean(window(prices, i, period))
}
