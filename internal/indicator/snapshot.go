package indicator

import (
	"math"

	"hindsight/internal/domain"
)

// DefaultSpread is the fixed bid/ask spread (0.1% of price) reported on
// every snapshot until a real quote feed exists.
const DefaultSpread = 0.001

// Moving-average periods reported on every snapshot.
const (
	SMAShortPeriod  = 20
	SMAMediumPeriod = 50
	SMALongPeriod   = 200
)

// SnapshotBuilder builds market snapshots for a time-sorted price series.
// It holds only the raw close prices; every snapshot is computed from
// scratch, so At may be called for any index in any order.
type SnapshotBuilder struct {
	series []domain.PriceRecord
	prices []float64
}

// NewSnapshotBuilder creates a SnapshotBuilder over series, which must
// already be sorted by timestamp. The series is not copied or modified.
//
// Prices that are not finite and positive are replaced in the indicator
// input by the previous usable price, or by the first one for a leading run.
// Snapshots still report the raw price as CurrentPrice.
func NewSnapshotBuilder(series []domain.PriceRecord) *SnapshotBuilder {
	prices := make([]float64, len(series))
	last := math.NaN()
	for i, r := range series {
		if usable(r.Price) {
			last = r.Price
		}
		prices[i] = last
	}
	// Backfill a leading run of unusable prices.
	first := len(prices)
	for i, p := range prices {
		if !math.IsNaN(p) {
			first = i
			break
		}
	}
	fill := 0.0
	if first < len(prices) {
		fill = prices[first]
	}
	for i := 0; i < first; i++ {
		prices[i] = fill
	}
	return &SnapshotBuilder{series: series, prices: prices}
}

func usable(p float64) bool {
	return p > 0 && !math.IsInf(p, 1)
}

// Len returns the number of steps in the series.
func (b *SnapshotBuilder) Len() int { return len(b.series) }

// Prices returns the close-price slice the indicators are computed from.
func (b *SnapshotBuilder) Prices() []float64 { return b.prices }

// At builds the snapshot for index i.
func (b *SnapshotBuilder) At(i int) domain.MarketSnapshot {
	rec := b.series[i]
	p := b.prices
	return domain.MarketSnapshot{
		Timestamp:    rec.Timestamp,
		CurrentPrice: rec.Price,
		Volume:       rec.Volume,
		Volatility:   Volatility(p, i, WindowPeriod),
		Spread:       DefaultSpread,
		Support:      Support(p, i, WindowPeriod),
		Resistance:   Resistance(p, i, WindowPeriod),
		Trend:        TrendOf(p, i, WindowPeriod),
		RSI:          RSI(p, i, RSIPeriod),
		MACD:         MACDOf(p, i),
		Bollinger:    BollingerOf(p, i, BollingerPeriod),
		MovingAverages: domain.MovingAverages{
			SMA20:  SMA(p, i, SMAShortPeriod),
			SMA50:  SMA(p, i, SMAMediumPeriod),
			SMA200: SMA(p, i, SMALongPeriod),
		},
	}
}

// BuildSnapshot is a convenience wrapper building a single snapshot for
// index i of a sorted series.
func BuildSnapshot(series []domain.PriceRecord, i int) domain.MarketSnapshot {
	return NewSnapshotBuilder(series).At(i)
}
