package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hindsight/internal/report"
)

func newOptimizeCmd(a *app) *cobra.Command {
	var (
		rf     rangeFlags
		name   string
		axes   []string
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Grid-search a strategy's parameters for the best Sharpe ratio",
		Long: `Runs one full backtest per combination of the grid and keeps the
combination with the highest Sharpe ratio. Axes come from --grid flags
(name=v1,v2,...) or, when none are given, from optimize.grid in the config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				name = a.cfg.Optimize.Strategy
			}
			if name == "" {
				return fmt.Errorf("no strategy: pass --strategy or set optimize.strategy")
			}
			req, err := rf.request(a, name)
			if err != nil {
				return err
			}
			grid := a.cfg.Optimize.Grid
			if len(axes) > 0 {
				if grid, err = parseGrid(axes); err != nil {
					return err
				}
			}

			bt, closeFn, err := a.backtester(!noSave)
			if err != nil {
				return err
			}
			defer closeFn()

			out, id, err := bt.Optimize(cmd.Context(), req, grid)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.jsonOut {
				return a.writeJSON(w, struct {
					ID      string `json:"id,omitempty"`
					Outcome any    `json:"outcome"`
				}{id, out})
			}
			if err := report.WriteOptimization(w, out); err != nil {
				return err
			}
			if out.Best == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "\nNo combination produced a result.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nBest: %s (Sharpe %s)", report.FormatParams(out.BestParameters), report.FormatRatio(out.BestSharpe, 3))
			if id != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", run %s", id)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVarP(&name, "strategy", "s", "", "strategy to optimize (default: optimize.strategy)")
	cmd.Flags().StringArrayVarP(&axes, "grid", "g", nil, "grid axis name=v1,v2,... (repeatable, in order)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the best run in the result ledger")
	return cmd
}
