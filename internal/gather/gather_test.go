package gather

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"hindsight/internal/store"
)

func TestPriceGathererName(t *testing.T) {
	g, err := NewPriceGatherer(PriceGathererConfig{APIKey: "key", APISecret: "secret", Timeframe: "1Day"}, nil, nil)
	if err != nil {
		t.Fatalf("NewPriceGatherer: %v", err)
	}
	if got := g.Name(); got != "alpaca-prices" {
		t.Errorf("PriceGatherer.Name() = %q, want %q", got, "alpaca-prices")
	}
}

func TestParseTimeFrame(t *testing.T) {
	tests := []struct {
		in   string
		want marketdata.TimeFrame
	}{
		{"1Min", marketdata.OneMin},
		{"1Hour", marketdata.OneHour},
		{"", marketdata.OneHour},
		{"1d", marketdata.OneDay},
	}
	for _, tt := range tests {
		got, err := ParseTimeFrame(tt.in)
		if err != nil {
			t.Errorf("ParseTimeFrame(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeFrame(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseTimeFrame("5Sec"); err == nil {
		t.Error("ParseTimeFrame(5Sec) returned no error")
	}
}

func TestBarsToPrices(t *testing.T) {
	ts := time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC)
	got := barsToPrices([]marketdata.Bar{{Timestamp: ts, Open: 10, Close: 10.5, Volume: 1200}})
	if len(got) != 1 || got[0].Price != 10.5 || got[0].Volume != 1200 || !got[0].Timestamp.Equal(ts) {
		t.Errorf("barsToPrices = %+v", got)
	}

	crypto := cryptoBarsToPrices([]marketdata.CryptoBar{{Timestamp: ts, Close: 64000, Volume: 0.75}})
	if len(crypto) != 1 || crypto[0].Price != 64000 || crypto[0].Volume != 0.75 {
		t.Errorf("cryptoBarsToPrices = %+v", crypto)
	}
}

func TestStoreSymbol(t *testing.T) {
	if got := StoreSymbol("btc/usd"); got != "BTCUSD" {
		t.Errorf("StoreSymbol(btc/usd) = %q, want BTCUSD", got)
	}
}

func TestProgressTracker(t *testing.T) {
	dir := t.TempDir()
	pt, err := newProgressTracker(dir)
	if err != nil {
		t.Fatalf("newProgressTracker: %v", err)
	}
	if !pt.LastFetched("AAPL").IsZero() {
		t.Error("LastFetched on fresh tracker should be zero")
	}

	ts := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := pt.MarkFetched("AAPL", ts); err != nil {
		t.Fatalf("MarkFetched: %v", err)
	}
	// Older timestamps never move the watermark back.
	if err := pt.MarkFetched("AAPL", ts.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkFetched (older): %v", err)
	}

	// A new tracker reloads the persisted state.
	pt2, err := newProgressTracker(dir)
	if err != nil {
		t.Fatalf("newProgressTracker (reload): %v", err)
	}
	if got := pt2.LastFetched("AAPL"); !got.Equal(ts) {
		t.Errorf("reloaded LastFetched = %v, want %v", got, ts)
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-01-01", "2024-03-31")
	if err != nil {
		t.Fatalf("ParseDateRange: %v", err)
	}
	if r.Start.Month() != time.January || r.End.Month() != time.March {
		t.Errorf("ParseDateRange = %+v", r)
	}
	if _, err := ParseDateRange("01/01/2024", ""); err == nil {
		t.Error("ParseDateRange accepted a non ISO date")
	}
}

func TestReadPricesCSV(t *testing.T) {
	in := `timestamp,close,volume
2024-01-01T00:00:00Z,42000.5,10
1704070800000,42100,
2024-01-02,42200,3.5
`
	got, err := ReadPricesCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPricesCSV: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadPricesCSV returned %d records, want 3", len(got))
	}
	if got[0].Price != 42000.5 || got[0].Volume != 10 {
		t.Errorf("record 0 = %+v", got[0])
	}
	if want := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC); !got[1].Timestamp.Equal(want) {
		t.Errorf("unix ms timestamp = %v, want %v", got[1].Timestamp, want)
	}
	if got[1].Volume != 0 {
		t.Errorf("empty volume = %v, want 0", got[1].Volume)
	}
}

func TestReadPricesCSVErrors(t *testing.T) {
	for name, in := range map[string]string{
		"no price column": "timestamp,volume\n2024-01-01,1\n",
		"bad price":       "timestamp,price\n2024-01-01,abc\n",
		"bad timestamp":   "timestamp,price\nyesterday,1\n",
		"nan price":       "timestamp,price\n2024-01-01,NaN\n",
		"infinite price":  "timestamp,price\n2024-01-01,+Inf\n",
		"nan volume":      "timestamp,price,volume\n2024-01-01,1,nan\n",
	} {
		if _, err := ReadPricesCSV(strings.NewReader(in)); err == nil {
			t.Errorf("%s: ReadPricesCSV returned no error", name)
		}
	}
}

func TestCSVImporterRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eth.csv")
	if err := os.WriteFile(path, []byte("date,price\n2024-01-01,2300\n2024-01-02,2350\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ps := store.NewParquetStore(dir)
	if err := NewCSVImporter(path, "eth/usd", ps, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := ps.ReadPrices(context.Background(), "ETHUSD", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ReadPrices: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("imported %d records, want 2", len(got))
	}
}
