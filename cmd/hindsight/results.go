package main

import (
	"github.com/spf13/cobra"

	"hindsight/internal/report"
	"hindsight/internal/store"
)

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect recorded backtest runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer rs.Close()

			runs, err := rs.ListResults(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(cmd.OutOrStdout(), runs)
			}
			return report.WriteRuns(cmd.OutOrStdout(), runs)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")

	var trades bool
	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer rs.Close()

			res, err := rs.GetResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(cmd.OutOrStdout(), res)
			}
			return report.WriteResult(cmd.OutOrStdout(), res, trades)
		},
	}
	show.Flags().BoolVar(&trades, "trades", false, "print the trade ledger")

	cmd.AddCommand(list, show)
	return cmd
}
