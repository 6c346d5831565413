package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hindsight/internal/backtest"
	"hindsight/internal/config"
	"hindsight/internal/engine"
	"hindsight/internal/optimize"
	"hindsight/internal/store"
	"hindsight/internal/strategy"
	"hindsight/internal/strategy/builtins"
	"hindsight/internal/util"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath string
	jsonOut bool

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "hindsight",
		Short:         "Backtest trading strategies against historical prices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.Path(), "path to the YAML config file")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "write results as JSON")

	root.AddCommand(
		newBacktestCmd(a),
		newOptimizeCmd(a),
		newCompareCmd(a),
		newFetchCmd(a),
		newImportCmd(a),
		newResultsCmd(a),
		newStrategiesCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(a.log)
	return nil
}

func (a *app) engineOptions() engine.Options {
	bc := a.cfg.Backtest
	return engine.Options{
		Symbol:         bc.Symbol,
		InitialBalance: bc.InitialBalance,
		CommissionRate: bc.CommissionRate,
		RiskFreeRate:   bc.RiskFreeRate,
		Days:           bc.Days,
		MaxPositionPct: bc.MaxPositionPct,
	}
}

// backtester builds a Backtester over the configured stores. The returned
// closer releases the result ledger.
func (a *app) backtester(save bool) (*backtest.Backtester, func(), error) {
	prices := store.NewParquetStore(a.cfg.Storage.DataDir)
	if !save {
		return backtest.NewBacktester(prices, nil, builtins.NewRegistry(), a.engineOptions(), a.log), func() {}, nil
	}
	results, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening result ledger: %w", err)
	}
	bt := backtest.NewBacktester(prices, results, builtins.NewRegistry(), a.engineOptions(), a.log)
	return bt, func() { results.Close() }, nil
}

func (a *app) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ---------------------------------------------------------------------------
// Flag parsing helpers
// ---------------------------------------------------------------------------

// parseParams parses name=value pairs into a parameter update.
func parseParams(pairs []string) (strategy.Parameters, error) {
	out := strategy.Parameters{}
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		name, val = strings.TrimSpace(name), strings.TrimSpace(val)
		if !ok || name == "" || val == "" {
			return nil, fmt.Errorf("parameter %q: want name=value", p)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p, err)
		}
		out[name] = f
	}
	return out, nil
}

// parseGrid parses name=v1,v2,... axes, keeping their order.
func parseGrid(axes []string) (optimize.Grid, error) {
	grid := make(optimize.Grid, 0, len(axes))
	for _, ax := range axes {
		name, vals, ok := strings.Cut(ax, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("grid axis %q: want name=v1,v2,...", ax)
		}
		axis := optimize.Axis{Name: name}
		for _, v := range strings.Split(vals, ",") {
			if strings.TrimSpace(v) == "" {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("grid axis %q: %w", ax, err)
			}
			axis.Values = append(axis.Values, f)
		}
		grid = append(grid, axis)
	}
	return grid, nil
}

// parseDate parses an optional YYYY-MM-DD or RFC 3339 bound. A bare date
// used as an upper bound covers the whole day.
func parseDate(s string, upper bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// rangeFlags are the --symbol/--start/--end flags shared by the replay
// commands.
type rangeFlags struct {
	symbol     string
	start, end string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "symbol to replay (default: backtest.symbol)")
	cmd.Flags().StringVar(&f.start, "start", "", "first date to replay, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "last date to replay, YYYY-MM-DD")
}

func (f *rangeFlags) request(a *app, strategyName string) (backtest.Request, error) {
	req := backtest.Request{Strategy: strategyName, Symbol: f.symbol}
	if req.Symbol == "" {
		req.Symbol = a.cfg.Backtest.Symbol
	}
	var err error
	if req.Start, err = parseDate(f.start, false); err != nil {
		return req, fmt.Errorf("--start: %w", err)
	}
	if req.End, err = parseDate(f.end, true); err != nil {
		return req, fmt.Errorf("--end: %w", err)
	}
	return req, nil
}
