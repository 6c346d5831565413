package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"hindsight/internal/domain"
)

// Compile-time interface check.
var _ PriceStore = (*ParquetStore)(nil)

// ParquetStore implements PriceStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// PriceRow is the Parquet schema for a single price observation.
type PriceRow struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Volume    float64 `parquet:"volume"`
}

// ---------------------------------------------------------------------------
// PriceStore implementation
// ---------------------------------------------------------------------------

// WritePrices writes price data to Parquet files organized by symbol and
// year. Each symbol+year combination produces a separate file at:
//
//	<DataDir>/prices/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WritePrices(_ context.Context, symbol string, prices []domain.PriceRecord) error {
	if len(prices) == 0 {
		return nil
	}
	symbol = strings.ToUpper(symbol)

	groups := make(map[int][]PriceRow)
	for _, p := range prices {
		year := p.Timestamp.UTC().Year()
		groups[year] = append(groups[year], PriceRow{
			Symbol:    symbol,
			Timestamp: p.Timestamp.UnixMilli(),
			Price:     p.Price,
			Volume:    p.Volume,
		})
	}

	for year, rows := range groups {
		path := s.pricePath(symbol, year)

		// Read existing rows to merge.
		existing, _ := readParquetFile[PriceRow](path)
		merged := mergePriceRows(existing, rows)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing prices for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadPrices reads price data from Parquet files for the given symbol and
// time range.
func (s *ParquetStore) ReadPrices(_ context.Context, symbol string, start, end time.Time) ([]domain.PriceRecord, error) {
	years, err := s.years(symbol)
	if err != nil {
		return nil, err
	}

	var prices []domain.PriceRecord
	for _, year := range years {
		if !start.IsZero() && year < start.UTC().Year() {
			continue
		}
		if !end.IsZero() && year > end.UTC().Year() {
			continue
		}

		rows, err := readParquetFile[PriceRow](s.pricePath(symbol, year))
		if err != nil {
			return nil, fmt.Errorf("reading prices for %s/%d: %w", symbol, year, err)
		}
		for _, r := range rows {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if !start.IsZero() && ts.Before(start) {
				continue
			}
			if !end.IsZero() && ts.After(end) {
				continue
			}
			prices = append(prices, domain.PriceRecord{Timestamp: ts, Price: r.Price, Volume: r.Volume})
		}
	}
	return prices, nil
}

// ListSymbols lists all symbols that have price data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "prices"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// years returns the sorted years that have a file for symbol.
func (s *ParquetStore) years(symbol string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "prices", strings.ToUpper(symbol)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var years []int
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".parquet")
		if !ok || e.IsDir() {
			continue
		}
		if y, err := strconv.Atoi(name); err == nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// pricePath returns the filesystem path for a price Parquet file.
// Layout: <dataDir>/prices/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) pricePath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "prices", strings.ToUpper(symbol), strconv.Itoa(year)+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePriceRows deduplicates price rows by timestamp, preferring incoming
// rows over existing ones. Results are sorted by timestamp.
func mergePriceRows(existing, incoming []PriceRow) []PriceRow {
	seen := make(map[int64]PriceRow, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]PriceRow, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
