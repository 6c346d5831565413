package main

import (
	"github.com/spf13/cobra"

	"hindsight/internal/report"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		rf      rangeFlags
		names   []string
		workers int
		noSave  bool
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run several strategies over the same prices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := rf.request(a, "")
			if err != nil {
				return err
			}
			if len(names) == 0 {
				names = a.cfg.Compare.Strategies
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Compare.Workers
			}

			bt, closeFn, err := a.backtester(!noSave)
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := bt.Compare(cmd.Context(), names, req, workers)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.jsonOut {
				type entry struct {
					Result any    `json:"result,omitempty"`
					Error  string `json:"error,omitempty"`
				}
				out := make(map[string]entry, len(results))
				for name, c := range results {
					e := entry{Result: c.Result}
					if c.Err != nil {
						e = entry{Error: c.Err.Error()}
					}
					out[name] = e
				}
				return a.writeJSON(w, out)
			}
			return report.WriteComparison(w, results)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringSliceVar(&names, "strategies", nil, "strategies to compare (default: compare.strategies, or all)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "backtests to run at once (default: compare.workers)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the runs in the result ledger")
	return cmd
}
