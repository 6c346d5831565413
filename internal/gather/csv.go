package gather

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"hindsight/internal/domain"
	"hindsight/internal/store"
)

var _ Gatherer = (*CSVImporter)(nil)

// ReadPricesCSV parses a price export with a header row. Recognized columns
// are timestamp (or time, date), price (or close) and an optional volume.
// Timestamps may be RFC 3339, YYYY-MM-DD, or Unix milliseconds.
func ReadPricesCSV(r io.Reader) ([]domain.PriceRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	tsCol, priceCol, volCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "timestamp", "time", "date":
			tsCol = i
		case "price", "close":
			priceCol = i
		case "volume":
			volCol = i
		}
	}
	if tsCol < 0 || priceCol < 0 {
		return nil, errors.New("header needs timestamp and price columns")
	}

	var out []domain.PriceRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseTimestamp(rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[priceCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: price: %w", line, err)
		}
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("line %d: price %q is not a finite number", line, rec[priceCol])
		}
		var vol float64
		if volCol >= 0 && strings.TrimSpace(rec[volCol]) != "" {
			if vol, err = strconv.ParseFloat(strings.TrimSpace(rec[volCol]), 64); err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
			if math.IsNaN(vol) || math.IsInf(vol, 0) {
				return nil, fmt.Errorf("line %d: volume %q is not a finite number", line, rec[volCol])
			}
		}
		out = append(out, domain.PriceRecord{Timestamp: ts, Price: price, Volume: vol})
	}
	return out, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CSVImporter loads a CSV price export into the store under one symbol.
type CSVImporter struct {
	path   string
	symbol string
	store  store.PriceStore
	log    *slog.Logger
}

// NewCSVImporter creates a CSVImporter for the file at path.
func NewCSVImporter(path, symbol string, s store.PriceStore, logger *slog.Logger) *CSVImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVImporter{path: path, symbol: symbol, store: s, log: logger.With("gatherer", "csv-import")}
}

// Name returns the gatherer identifier.
func (c *CSVImporter) Name() string { return "csv-import" }

// Run reads the file and merges its records into the store.
func (c *CSVImporter) Run(ctx context.Context) error {
	f, err := os.Open(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	prices, err := ReadPricesCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.path, err)
	}
	if err := c.store.WritePrices(ctx, StoreSymbol(c.symbol), prices); err != nil {
		return err
	}
	c.log.Info("imported", "file", c.path, "symbol", StoreSymbol(c.symbol), "records", len(prices))
	return nil
}
