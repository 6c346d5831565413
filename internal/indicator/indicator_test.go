package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindsight/internal/domain"
)

func constant(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestConstantSeries(t *testing.T) {
	prices := constant(30, 100)
	i := len(prices) - 1

	assert.Equal(t, 100.0, SMA(prices, i, 20))
	assert.Equal(t, 100.0, EMA(prices, i, 12))
	assert.Equal(t, 50.0, RSI(prices, i, RSIPeriod))
	assert.Equal(t, 0.0, Volatility(prices, i, WindowPeriod))

	bb := BollingerOf(prices, i, BollingerPeriod)
	assert.Equal(t, 100.0, bb.Upper)
	assert.Equal(t, 100.0, bb.Middle)
	assert.Equal(t, 100.0, bb.Lower)
	assert.Equal(t, 100.0, bb.Current)

	macd := MACDOf(prices, i)
	assert.Equal(t, domain.MACD{}, macd)

	trend := TrendOf(prices, i, WindowPeriod)
	assert.Equal(t, domain.TrendNeutral, trend.Direction)
	assert.Equal(t, 0.0, trend.Strength)
}

func TestNeutralDefaults(t *testing.T) {
	var empty []float64
	assert.Equal(t, 0.0, SMA(empty, 0, 20))
	assert.Equal(t, 0.0, EMA(empty, 0, 20))
	assert.Equal(t, 50.0, RSI(empty, 0, 14))
	assert.Equal(t, 0.0, Volatility(empty, 0, 20))
	assert.Equal(t, 0.0, Support(empty, 0, 20))
	assert.Equal(t, 0.0, Resistance(empty, 0, 20))
	assert.Equal(t, domain.Trend{Direction: domain.TrendNeutral}, TrendOf(empty, 0, 20))
	assert.Equal(t, domain.MACD{}, MACDOf(empty, 0))

	single := []float64{42}
	assert.Equal(t, 50.0, RSI(single, 0, 14))
	assert.Equal(t, 0.0, Volatility(single, 0, 20))
	assert.Equal(t, domain.TrendNeutral, TrendOf(single, 0, 20).Direction)

	// Bollinger needs a full window.
	assert.Equal(t, domain.Bollinger{}, BollingerOf(constant(19, 100), 18, 20))
}

func TestVolatility(t *testing.T) {
	// Returns are +10% and -10%: population std dev is 10%.
	prices := []float64{100, 110, 99}
	assert.InDelta(t, 10.0, Volatility(prices, 2, 20), 1e-9)
}

func TestSupportResistance(t *testing.T) {
	prices := []float64{100, 105, 95}
	assert.InDelta(t, 95*0.98, Support(prices, 2, 20), 1e-9)
	assert.InDelta(t, 105*1.02, Resistance(prices, 2, 20), 1e-9)

	// Window of 2 ending at index 2 excludes the first price.
	assert.InDelta(t, 95*0.98, Support(prices, 2, 2), 1e-9)
	assert.InDelta(t, 105*1.02, Resistance(prices, 2, 2), 1e-9)
	assert.InDelta(t, 100*1.02, Resistance(prices, 0, 2), 1e-9)
}

func TestTrend(t *testing.T) {
	up := TrendOf([]float64{100, 103}, 1, 20)
	assert.Equal(t, domain.TrendUp, up.Direction)
	assert.InDelta(t, 0.3, up.Strength, 1e-9)

	down := TrendOf([]float64{100, 95}, 1, 20)
	assert.Equal(t, domain.TrendDown, down.Direction)
	assert.InDelta(t, 0.5, down.Strength, 1e-9)

	flat := TrendOf([]float64{100, 99}, 1, 20)
	assert.Equal(t, domain.TrendNeutral, flat.Direction)
	assert.InDelta(t, 0.1, flat.Strength, 1e-9)
}

func TestRSI(t *testing.T) {
	assert.Equal(t, 100.0, RSI([]float64{1, 2, 3}, 2, 14))
	assert.Equal(t, 0.0, RSI([]float64{3, 2, 1}, 2, 14))
	assert.InDelta(t, 50.0, RSI([]float64{1, 2, 1}, 2, 14), 1e-9)

	// Period 2 at index 2 only sees [1, 2].
	assert.Equal(t, 100.0, RSI([]float64{10, 1, 2, 3}, 2, 2))
}

func TestEMA(t *testing.T) {
	// Seeded with 1, multiplier 0.5: 1 -> 1.5 -> 2.25.
	assert.InDelta(t, 2.25, EMA([]float64{1, 2, 3}, 2, 3), 1e-9)
	// The window only covers the last three prices.
	assert.InDelta(t, 2.25, EMA([]float64{50, 1, 2, 3}, 3, 3), 1e-9)
}

func TestMACDHistogram(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	m := MACDOf(prices, len(prices)-1)
	assert.Greater(t, m.MACD, 0.0, "rising series should have a positive MACD")
	assert.InDelta(t, m.MACD-m.Signal, m.Histogram, 1e-12)
}

func TestMACDSignalLine(t *testing.T) {
	// Fast and slow EMAs are seeded with 10 and smoothed by 2/13 and 2/27.
	prices := []float64{10, 20, 10}
	line := []float64{
		0,
		20.0/13 - 20.0/27,
		220.0/169 - 500.0/729,
	}
	// The signal line is the EMA(9) of the MACD line, multiplier 0.2.
	s1 := 0.2 * line[1]
	s2 := 0.8*s1 + 0.2*line[2]

	m := MACDOf(prices, 2)
	assert.InDelta(t, line[2], m.MACD, 1e-12)
	assert.InDelta(t, s2, m.Signal, 1e-12)
	assert.InDelta(t, line[2]-s2, m.Histogram, 1e-12)

	// Only the last nine MACD values feed the signal line.
	long := make([]float64, 40)
	for i := range long {
		long[i] = 100 + float64(i%7)*3
	}
	var macds []float64
	for j := 31; j <= 39; j++ {
		macds = append(macds, EMA(long, j, MACDFastPeriod)-EMA(long, j, MACDSlowPeriod))
	}
	want := macds[0]
	for _, v := range macds[1:] {
		want = (v-want)*0.2 + want
	}
	assert.InDelta(t, want, MACDOf(long, 39).Signal, 1e-12)
}

func TestIndicatorsAreOrderIndependent(t *testing.T) {
	prices := []float64{100, 102, 99, 104, 108, 103, 101, 110, 115, 109, 107, 111}
	first := make([]float64, len(prices))
	for i := range prices {
		first[i] = RSI(prices, i, 5) + EMA(prices, i, 5) + Volatility(prices, i, 5) + MACDOf(prices, i).Histogram
	}
	// Evaluate in reverse order and confirm identical output.
	for i := len(prices) - 1; i >= 0; i-- {
		got := RSI(prices, i, 5) + EMA(prices, i, 5) + Volatility(prices, i, 5) + MACDOf(prices, i).Histogram
		assert.Equal(t, first[i], got, "index %d", i)
	}
}

func TestSnapshotBuilder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]domain.PriceRecord, 30)
	for i := range series {
		series[i] = domain.PriceRecord{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Price:     100,
			Volume:    1000,
		}
	}

	b := NewSnapshotBuilder(series)
	require.Equal(t, 30, b.Len())

	snap := b.At(29)
	assert.Equal(t, series[29].Timestamp, snap.Timestamp)
	assert.Equal(t, 100.0, snap.CurrentPrice)
	assert.Equal(t, 1000.0, snap.Volume)
	assert.Equal(t, DefaultSpread, snap.Spread)
	assert.Equal(t, 50.0, snap.RSI)
	assert.Equal(t, 100.0, snap.MovingAverages.SMA20)
	assert.Equal(t, 100.0, snap.MovingAverages.SMA50)
	assert.Equal(t, 100.0, snap.MovingAverages.SMA200)
	assert.Equal(t, 100.0, snap.Bollinger.Middle)
	assert.InDelta(t, 98.0, snap.Support, 1e-9)
	assert.InDelta(t, 102.0, snap.Resistance, 1e-9)

	// Building the same index again is identical.
	assert.Equal(t, snap, BuildSnapshot(series, 29))
}

func TestSnapshotBuilderUnusablePrices(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := []float64{math.NaN(), 100, math.Inf(1), 0, 104, 103}
	series := make([]domain.PriceRecord, len(raw))
	for i, p := range raw {
		series[i] = domain.PriceRecord{Timestamp: start.Add(time.Duration(i) * time.Hour), Price: p}
	}

	b := NewSnapshotBuilder(series)
	assert.Equal(t, []float64{100, 100, 100, 100, 104, 103}, b.Prices())

	snap := b.At(5)
	assert.Equal(t, 103.0, snap.CurrentPrice)
	assert.False(t, math.IsNaN(snap.Volatility))
	assert.False(t, math.IsNaN(snap.RSI))
	assert.False(t, math.IsNaN(snap.MACD.Signal))
	assert.InDelta(t, 100*0.98, snap.Support, 1e-9)

	// The raw price is still reported on the bad step.
	assert.True(t, math.IsInf(b.At(2).CurrentPrice, 1))

	// A series with no usable price at all falls back to zero.
	assert.Equal(t, []float64{0}, NewSnapshotBuilder(series[:1]).Prices())
}
