package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"hindsight/internal/domain"
	"hindsight/internal/optimize"
	"hindsight/internal/store"
	"hindsight/internal/strategy"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteResult renders a single backtest result: headline metrics, then the
// strategy's own statistics, then the trade ledger when trades is true.
func WriteResult(w io.Writer, r *domain.BacktestResult, trades bool) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Strategy\t%s\n", r.Strategy)
	fmt.Fprintf(tw, "Symbol\t%s\n", r.Symbol)
	fmt.Fprintf(tw, "Period\t%s → %s (%.1f days)\n",
		r.StartTime.Format(time.DateTime), r.EndTime.Format(time.DateTime), r.Days)
	if len(r.Parameters) > 0 {
		fmt.Fprintf(tw, "Parameters\t%s\n", FormatParams(r.Parameters))
	}
	fmt.Fprintf(tw, "Balance\t%s → %s\n", FormatMoney(r.InitialBalance), FormatMoney(r.FinalBalance))
	fmt.Fprintf(tw, "Total return\t%s\n", FormatPct(r.TotalReturn))
	fmt.Fprintf(tw, "Annualized\t%s\n", FormatPct(r.AnnualizedReturn*100))
	fmt.Fprintf(tw, "Sharpe\t%s\n", FormatRatio(r.SharpeRatio, 3))
	fmt.Fprintf(tw, "Max drawdown\t%s\n", FormatPct(-r.MaxDrawdown))
	fmt.Fprintf(tw, "Trades\t%s (%d won, %d lost, win rate %s)\n",
		FormatInt(r.TotalTrades), r.WinningTrades, r.LosingTrades, FormatPct(r.WinRate))
	fmt.Fprintf(tw, "Profit factor\t%s\n", FormatRatio(r.ProfitFactor, 2))
	fmt.Fprintf(tw, "Avg win / loss\t%s / %s\n", FormatPct(r.AvgWin), FormatPct(r.AvgLoss))
	fmt.Fprintf(tw, "Avg hold\t%s\n", FormatDuration(r.AvgHoldTime))
	if s := r.StrategyStats; s != nil && s.Trades > 0 {
		fmt.Fprintf(tw, "Best / worst\t%s / %s\n", FormatPct(s.BestTrade), FormatPct(s.WorstTrade))
		fmt.Fprintf(tw, "Exit reasons\t%s\n", formatReasons(s.ExitReasons))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if trades && len(r.Trades) > 0 {
		fmt.Fprintln(w)
		return WriteTrades(w, r.Trades)
	}
	return nil
}

// WriteTrades renders a trade ledger.
func WriteTrades(w io.Writer, trades []domain.Trade) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tSIDE\tENTRY\tEXIT\tQTY\tOPENED\tHELD\tP/L\tPNL\tREASON")
	for i, t := range trades {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, t.Direction,
			FormatMoney(t.EntryPrice), FormatMoney(t.ExitPrice),
			FormatRatio(t.Quantity, 4),
			t.EntryTime.Format(time.DateTime), FormatDuration(t.HoldTime),
			FormatPct(t.ProfitLoss), FormatMoney(t.PnL), t.ExitReason,
		)
	}
	return tw.Flush()
}

// WriteOptimization renders every evaluated combination, best first, and
// marks the winner.
func WriteOptimization(w io.Writer, out *optimize.Outcome) error {
	evals := slices.Clone(out.Evaluations)
	slices.SortStableFunc(evals, func(a, b optimize.Evaluation) int {
		switch {
		case a.Err != nil && b.Err == nil:
			return 1
		case a.Err == nil && b.Err != nil:
			return -1
		case a.SharpeRatio > b.SharpeRatio:
			return -1
		case a.SharpeRatio < b.SharpeRatio:
			return 1
		}
		return 0
	})

	tw := newTable(w)
	fmt.Fprintf(tw, "Strategy %s, %d combinations\n\n", out.Strategy, len(evals))
	fmt.Fprintln(tw, "\tPARAMETERS\tSHARPE\tRETURN\tTRADES")
	for _, ev := range evals {
		mark := ""
		if out.Best != nil && maps.Equal(ev.Parameters, out.BestParameters) && ev.Err == nil {
			mark = "*"
		}
		if ev.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\terror: %v\t\t\n", mark, FormatParams(ev.Parameters), ev.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", mark, FormatParams(ev.Parameters),
			FormatRatio(ev.SharpeRatio, 3), FormatPct(ev.TotalReturn), ev.TotalTrades)
	}
	return tw.Flush()
}

// WriteComparison renders one row per strategy, sorted by name.
func WriteComparison(w io.Writer, results map[string]optimize.Comparison) error {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := newTable(w)
	fmt.Fprintln(tw, "STRATEGY\tTRADES\tWIN RATE\tRETURN\tSHARPE\tMAX DD\tPROFIT FACTOR")
	for _, name := range names {
		c := results[name]
		if c.Err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\t\t\t\t\t\n", name, c.Err)
			continue
		}
		r := c.Result
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n", name, r.TotalTrades,
			FormatPct(r.WinRate), FormatPct(r.TotalReturn), FormatRatio(r.SharpeRatio, 3),
			FormatPct(-r.MaxDrawdown), FormatRatio(r.ProfitFactor, 2))
	}
	return tw.Flush()
}

// WriteRuns renders stored run summaries.
func WriteRuns(w io.Writer, runs []store.RunSummary) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCREATED\tSTRATEGY\tSYMBOL\tTRADES\tRETURN\tSHARPE\tMAX DD")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n", r.ID,
			r.CreatedAt.Local().Format(time.DateTime), r.Strategy, r.Symbol, r.TotalTrades,
			FormatPct(r.TotalReturn), FormatRatio(r.SharpeRatio, 3), FormatPct(-r.MaxDrawdown))
	}
	return tw.Flush()
}

// FormatParams renders parameters as sorted name=value pairs.
func FormatParams(p map[string]float64) string {
	names := strategy.Parameters(p).Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%g", n, p[n])
	}
	return strings.Join(parts, " ")
}

func formatReasons(reasons map[string]int) string {
	names := make([]string, 0, len(reasons))
	for n := range reasons {
		names = append(names, n)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s %d", n, reasons[n])
	}
	return strings.Join(parts, ", ")
}
