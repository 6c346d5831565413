package gather

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"hindsight/internal/domain"
	"hindsight/internal/store"
	"hindsight/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ Gatherer = (*PriceGatherer)(nil)

// ---------------------------------------------------------------------------
// PriceGatherer: historical bars from the Alpaca market-data API.
// ---------------------------------------------------------------------------

// PriceGathererConfig configures a PriceGatherer.
type PriceGathererConfig struct {
	APIKey          string
	APISecret       string
	DataURL         string
	Feed            string // stock feed: "iex" or "sip"
	Timeframe       string // 1Min, 1Hour or 1Day
	Symbols         []string
	Range           DateRange
	RateLimitPerMin int
	MaxAttempts     int
	DataDir         string // where fetch progress is kept
}

// PriceGatherer downloads bar history for a list of symbols and stores each
// bar's close as a price record. Symbols containing "/" (e.g. BTC/USD) are
// fetched from the crypto endpoint and stored without the slash.
type PriceGatherer struct {
	client      *marketdata.Client
	store       store.PriceStore
	cfg         PriceGathererConfig
	timeframe   marketdata.TimeFrame
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// NewPriceGatherer creates a PriceGatherer configured with the given Alpaca
// credentials and target store.
func NewPriceGatherer(cfg PriceGathererConfig, s store.PriceStore, logger *slog.Logger) (*PriceGatherer, error) {
	tf, err := ParseTimeFrame(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}

	return &PriceGatherer{
		client:      marketdata.NewClient(opts),
		store:       s,
		cfg:         cfg,
		timeframe:   tf,
		limiter:     util.NewRateLimiter(max(cfg.RateLimitPerMin, 1)),
		maxAttempts: max(cfg.MaxAttempts, 1),
		log:         logger.With("gatherer", "alpaca-prices"),
	}, nil
}

// ParseTimeFrame maps a configured timeframe name to an Alpaca timeframe.
func ParseTimeFrame(s string) (marketdata.TimeFrame, error) {
	switch s {
	case "1Min", "1m":
		return marketdata.OneMin, nil
	case "1Hour", "1h", "":
		return marketdata.OneHour, nil
	case "1Day", "1d":
		return marketdata.OneDay, nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("unsupported timeframe %q", s)
}

// StoreSymbol returns the name under which prices for an API symbol are
// stored.
func StoreSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// Name returns the gatherer identifier.
func (g *PriceGatherer) Name() string { return "alpaca-prices" }

// Run fetches every configured symbol in turn. Each symbol resumes after the
// newest bar fetched by a previous run. A symbol that still fails after all
// retries is logged and skipped; Run then reports the number of failures.
func (g *PriceGatherer) Run(ctx context.Context) error {
	tracker, err := newProgressTracker(filepath.Join(g.cfg.DataDir, "prices"))
	if err != nil {
		return err
	}

	var failed int
	for _, sym := range g.cfg.Symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		key := StoreSymbol(sym)

		start := g.cfg.Range.Start
		if last := tracker.LastFetched(key); !last.IsZero() && last.After(start) {
			start = last.Add(time.Second)
		}
		if !start.Before(g.cfg.Range.End) {
			g.log.Info("up to date", "symbol", sym)
			continue
		}

		var prices []domain.PriceRecord
		err := util.Retry(ctx, g.maxAttempts, time.Second, func() error {
			if err := g.limiter.Wait(ctx); err != nil {
				return util.Permanent(err)
			}
			var ferr error
			prices, ferr = g.fetch(sym, start, g.cfg.Range.End)
			return ferr
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.log.Error("fetch failed", "symbol", sym, "err", err)
			failed++
			continue
		}
		if len(prices) == 0 {
			g.log.Info("no new bars", "symbol", sym, "start", start)
			continue
		}

		if err := g.store.WritePrices(ctx, key, prices); err != nil {
			return fmt.Errorf("writing %s: %w", key, err)
		}
		if err := tracker.MarkFetched(key, prices[len(prices)-1].Timestamp); err != nil {
			return err
		}
		g.log.Info("symbol done",
			"symbol", sym,
			"bars", len(prices),
			"from", prices[0].Timestamp,
			"to", prices[len(prices)-1].Timestamp,
		)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(g.cfg.Symbols))
	}
	return nil
}

// fetch downloads bars for one symbol in [start, end].
func (g *PriceGatherer) fetch(symbol string, start, end time.Time) ([]domain.PriceRecord, error) {
	if strings.Contains(symbol, "/") {
		bars, err := g.client.GetCryptoBars(symbol, marketdata.GetCryptoBarsRequest{
			TimeFrame: g.timeframe,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("GetCryptoBars: %w", err)
		}
		return cryptoBarsToPrices(bars), nil
	}

	bars, err := g.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: g.timeframe,
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(g.cfg.Feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}
	return barsToPrices(bars), nil
}

func barsToPrices(bars []marketdata.Bar) []domain.PriceRecord {
	out := make([]domain.PriceRecord, 0, len(bars))
	for _, b := range bars {
		out = append(out, domain.PriceRecord{
			Timestamp: b.Timestamp.UTC(),
			Price:     b.Close,
			Volume:    float64(b.Volume),
		})
	}
	return out
}

func cryptoBarsToPrices(bars []marketdata.CryptoBar) []domain.PriceRecord {
	out := make([]domain.PriceRecord, 0, len(bars))
	for _, b := range bars {
		out = append(out, domain.PriceRecord{
			Timestamp: b.Timestamp.UTC(),
			Price:     b.Close,
			Volume:    b.Volume,
		})
	}
	return out
}
