package builtins

import (
	"hindsight/internal/domain"
	"hindsight/internal/strategy"
)

// summarize builds the strategy-side view of a trade ledger.
func summarize(trades []domain.Trade) domain.StrategyStats {
	stats := domain.StrategyStats{
		Trades:      len(trades),
		ExitReasons: make(map[string]int),
	}
	if len(trades) == 0 {
		return stats
	}

	stats.BestTrade = trades[0].ProfitLoss
	stats.WorstTrade = trades[0].ProfitLoss
	sum := 0.0
	for _, t := range trades {
		if t.ProfitLoss > 0 {
			stats.Wins++
		}
		stats.BestTrade = max(stats.BestTrade, t.ProfitLoss)
		stats.WorstTrade = min(stats.WorstTrade, t.ProfitLoss)
		stats.ExitReasons[t.ExitReason]++
		sum += t.ProfitLoss
	}
	stats.MeanProfitLoss = sum / float64(len(trades))
	return stats
}

// NewRegistry returns a registry holding every built-in strategy.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}

// Register adds fresh instances of every built-in strategy to r.
func Register(r *strategy.Registry) {
	r.Register(NewScalping())
	r.Register(NewDayTrading())
	r.Register(NewSwingTrading())
	r.Register(NewLongTerm())
	r.Register(NewReject())
}
