package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hindsight/internal/report"
)

func newBacktestCmd(a *app) *cobra.Command {
	var (
		rf     rangeFlags
		name   string
		params []string
		trades bool
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay stored prices through one strategy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := rf.request(a, name)
			if err != nil {
				return err
			}
			if req.Params, err = parseParams(params); err != nil {
				return err
			}

			bt, closeFn, err := a.backtester(!noSave)
			if err != nil {
				return err
			}
			defer closeFn()

			res, id, err := bt.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return a.writeJSON(out, struct {
					ID     string `json:"id,omitempty"`
					Result any    `json:"result"`
				}{id, res})
			}
			if id != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n\n", id)
			}
			return report.WriteResult(out, res, trades)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVarP(&name, "strategy", "s", "day-trading", "strategy to run")
	cmd.Flags().StringArrayVarP(&params, "set", "p", nil, "parameter override name=value (repeatable)")
	cmd.Flags().BoolVar(&trades, "trades", false, "print the trade ledger")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run in the result ledger")
	return cmd
}
