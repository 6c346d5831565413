package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hindsight/internal/gather"
	"hindsight/internal/store"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		symbols   []string
		timeframe string
		start     string
		end       string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download historical bars from Alpaca into the price store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gc := a.cfg.Gather
			if len(symbols) == 0 {
				symbols = gc.Symbols
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols: pass --symbols or set gather.symbols")
			}
			if timeframe == "" {
				timeframe = gc.Timeframe
			}
			if start == "" {
				start = gc.StartDate
			}
			if end == "" {
				end = gc.EndDate
			}
			rng, err := gather.ParseDateRange(start, end)
			if err != nil {
				return fmt.Errorf("date range: %w", err)
			}

			g, err := gather.NewPriceGatherer(gather.PriceGathererConfig{
				APIKey:          a.cfg.Alpaca.APIKey,
				APISecret:       a.cfg.Alpaca.APISecret,
				DataURL:         a.cfg.Alpaca.DataURL,
				Feed:            a.cfg.Alpaca.Feed,
				Timeframe:       timeframe,
				Symbols:         symbols,
				Range:           rng,
				RateLimitPerMin: gc.RateLimitPerMin,
				MaxAttempts:     gc.MaxAttempts,
				DataDir:         a.cfg.Storage.DataDir,
			}, store.NewParquetStore(a.cfg.Storage.DataDir), a.log)
			if err != nil {
				return err
			}

			a.log.Info("starting gatherer", "name", g.Name(), "symbols", len(symbols))
			return g.Run(cmd.Context())
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to fetch, e.g. BTC/USD,AAPL (default: gather.symbols)")
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "bar size: 1Min, 1Hour or 1Day (default: gather.timeframe)")
	cmd.Flags().StringVar(&start, "start", "", "first date, YYYY-MM-DD (default: gather.start_date)")
	cmd.Flags().StringVar(&end, "end", "", "last date, YYYY-MM-DD (default: gather.end_date, or now)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Load a CSV price export (timestamp,price[,volume]) into the price store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" {
				symbol = a.cfg.Backtest.Symbol
			}
			imp := gather.NewCSVImporter(args[0], symbol, store.NewParquetStore(a.cfg.Storage.DataDir), a.log)
			return imp.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol to store the prices under (default: backtest.symbol)")
	return cmd
}
