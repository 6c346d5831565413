package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hindsight/internal/report"
	"hindsight/internal/strategy/builtins"
)

func newStrategiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the built-in strategies and their default parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := builtins.NewRegistry()
			if a.jsonOut {
				out := make(map[string]map[string]float64)
				for _, name := range reg.List() {
					s, _ := reg.Get(name)
					out[name] = s.Parameters()
				}
				return a.writeJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPARAMETERS")
			for _, name := range reg.List() {
				s, _ := reg.Get(name)
				fmt.Fprintf(tw, "%s\t%s\n", name, report.FormatParams(s.Parameters()))
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Overrides the root hook: printing the version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hindsight %s\n", version)
		},
	}
}
