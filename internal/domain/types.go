// Package domain defines the core value types shared across the backtesting
// engine: price records, market snapshots, positions, trades, and results.
package domain

import "time"

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// Direction is the side of an open position.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Sign returns +1 for long exposure and -1 for short exposure.
func (d Direction) Sign() float64 {
	if d == DirectionSell {
		return -1
	}
	return 1
}

// Action is the outcome of an entry analysis.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Direction maps a BUY/SELL action to a position direction. The second
// return value is false for HOLD or unknown actions.
func (a Action) Direction() (Direction, bool) {
	switch a {
	case ActionBuy:
		return DirectionBuy, true
	case ActionSell:
		return DirectionSell, true
	default:
		return "", false
	}
}

// TrendDirection classifies the price change across an indicator window.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// ExitReasonBacktestEnd marks positions force-closed at the end of a series.
const ExitReasonBacktestEnd = "backtest end"

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// PriceRecord is a single point of a historical price series.
type PriceRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// Signal is the per-step input handed to a strategy alongside the snapshot.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Trend is the direction and magnitude of the windowed price change.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Strength  float64        `json:"strength"`
}

// MACD holds the MACD line, its signal line, and their difference.
type MACD struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger holds the bands around the windowed mean, plus the price they
// were computed against.
type Bollinger struct {
	Upper   float64 `json:"upper"`
	Middle  float64 `json:"middle"`
	Lower   float64 `json:"lower"`
	Current float64 `json:"current"`
}

// MovingAverages holds the standard simple moving averages.
type MovingAverages struct {
	SMA20  float64 `json:"sma20"`
	SMA50  float64 `json:"sma50"`
	SMA200 float64 `json:"sma200"`
}

// MarketSnapshot is the point-in-time view built for one step of a
// backtest. It is recomputed from the raw series for every index.
type MarketSnapshot struct {
	Timestamp      time.Time      `json:"timestamp"`
	CurrentPrice   float64        `json:"currentPrice"`
	Volume         float64        `json:"volume"`
	Volatility     float64        `json:"volatility"`
	Spread         float64        `json:"spread"`
	Support        float64        `json:"support"`
	Resistance     float64        `json:"resistance"`
	Trend          Trend          `json:"trend"`
	RSI            float64        `json:"rsi"`
	MACD           MACD           `json:"macd"`
	Bollinger      Bollinger      `json:"bollinger"`
	MovingAverages MovingAverages `json:"movingAverages"`
}

// ---------------------------------------------------------------------------
// Positions and trades
// ---------------------------------------------------------------------------

// Position is an open bet held inside a portfolio.
type Position struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entryPrice"`
	Quantity   float64   `json:"quantity"`
	EntryTime  time.Time `json:"entryTime"`
	Confidence float64   `json:"confidence"`
	Size       float64   `json:"size"`
	StopLoss   float64   `json:"stopLoss"`
	TakeProfit float64   `json:"takeProfit"`

	EntryCommission float64 `json:"entryCommission"`
}

// Trade is the immutable record of a closed position. ProfitLoss is the net
// PnL as a percentage of the entry notional; PnL is in account currency.
type Trade struct {
	Symbol          string        `json:"symbol"`
	Direction       Direction     `json:"direction"`
	EntryPrice      float64       `json:"entryPrice"`
	ExitPrice       float64       `json:"exitPrice"`
	Quantity        float64       `json:"quantity"`
	EntryTime       time.Time     `json:"entryTime"`
	ExitTime        time.Time     `json:"exitTime"`
	HoldTime        time.Duration `json:"holdTime"`
	ProfitLoss      float64       `json:"profitLoss"`
	PnL             float64       `json:"pnl"`
	Commission      float64       `json:"commission"`
	EntryCommission float64       `json:"entryCommission"`
	ExitReason      string        `json:"exitReason"`
	Confidence      float64       `json:"confidence"`
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Performance holds the aggregate statistics of a finished backtest.
// Percentages are expressed as 0-100 values; AnnualizedReturn is a ratio.
type Performance struct {
	TotalTrades      int           `json:"totalTrades"`
	WinningTrades    int           `json:"winningTrades"`
	LosingTrades     int           `json:"losingTrades"`
	WinRate          float64       `json:"winRate"`
	TotalReturn      float64       `json:"totalReturn"`
	AnnualizedReturn float64       `json:"annualizedReturn"`
	SharpeRatio      float64       `json:"sharpeRatio"`
	MaxDrawdown      float64       `json:"maxDrawdown"`
	ProfitFactor     float64       `json:"profitFactor"`
	AvgWin           float64       `json:"avgWin"`
	AvgLoss          float64       `json:"avgLoss"`
	AvgHoldTime      time.Duration `json:"avgHoldTime"`
}

// BacktestResult aggregates a run's trade ledger, curves, and statistics.
// Drawdown holds ratios (0-1); Performance.MaxDrawdown is a percentage.
type BacktestResult struct {
	Strategy       string             `json:"strategy"`
	Symbol         string             `json:"symbol"`
	Parameters     map[string]float64 `json:"parameters,omitempty"`
	InitialBalance float64            `json:"initialBalance"`
	FinalBalance   float64            `json:"finalBalance"`
	StartTime      time.Time          `json:"startTime"`
	EndTime        time.Time          `json:"endTime"`
	Days           float64            `json:"days"`

	Performance

	Trades        []Trade        `json:"trades"`
	Equity        []float64      `json:"equity"`
	Drawdown      []float64      `json:"drawdown"`
	StrategyStats *StrategyStats `json:"strategyStats,omitempty"`
}

// StrategyStats is a strategy's own summary of its trades, reported next to
// the generic Performance figures.
type StrategyStats struct {
	Trades         int            `json:"trades"`
	Wins           int            `json:"wins"`
	MeanProfitLoss float64        `json:"meanProfitLoss"`
	BestTrade      float64        `json:"bestTrade"`
	WorstTrade     float64        `json:"worstTrade"`
	ExitReasons    map[string]int `json:"exitReasons"`
}
