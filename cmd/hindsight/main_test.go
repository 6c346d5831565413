package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"target_profit=1.5", "stop_loss = 0.5"})
	require.NoError(t, err)
	assert.Equal(t, 1.5, p["target_profit"])
	assert.Equal(t, 0.5, p["stop_loss"])

	_, err = parseParams([]string{"target_profit"})
	assert.Error(t, err)
	_, err = parseParams([]string{"target_profit=high"})
	assert.Error(t, err)
	_, err = parseParams([]string{" =1"})
	assert.Error(t, err, "blank name")
	_, err = parseParams([]string{"stop_loss= "})
	assert.Error(t, err, "blank value")
}

func TestParseGrid(t *testing.T) {
	g, err := parseGrid([]string{"target_profit=1,2,3", "stop_loss=0.5,1"})
	require.NoError(t, err)
	require.Len(t, g, 2)
	assert.Equal(t, "target_profit", g[0].Name)
	assert.Equal(t, []float64{0.5, 1}, g[1].Values)

	_, err = parseGrid([]string{"=1,2"})
	assert.Error(t, err)
	_, err = parseGrid([]string{"  =1,2"})
	assert.Error(t, err, "blank axis name")
}

func TestParseDate(t *testing.T) {
	lo, err := parseDate("2024-03-01", false)
	require.NoError(t, err)
	hi, err := parseDate("2024-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour-time.Nanosecond, hi.Sub(lo))

	zero, err := parseDate("", true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

// run executes the CLI with a private data directory and returns stdout.
func run(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("SQLITE_PATH", filepath.Join(dataDir, "hindsight.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(dataDir, "absent.yaml")}, args...))
	require.NoError(t, root.Execute(), "hindsight %s", strings.Join(args, " "))
	return out.String()
}

func TestImportBacktestAndResults(t *testing.T) {
	dir := t.TempDir()

	var csv strings.Builder
	csv.WriteString("timestamp,price,volume\n")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 120 {
		price := 100 + 8*float64(i%30)/30
		if (i/30)%2 == 1 {
			price = 108 - 8*float64(i%30)/30
		}
		fmt.Fprintf(&csv, "%s,%.4f,10\n", t0.Add(time.Duration(i)*time.Hour).Format(time.RFC3339), price)
	}
	path := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv.String()), 0o644))

	run(t, dir, "import", path, "--symbol", "TEST")

	out := run(t, dir, "--json", "backtest", "--symbol", "TEST", "--strategy", "scalping")
	var got struct {
		ID     string `json:"id"`
		Result struct {
			Strategy string    `json:"strategy"`
			Equity   []float64 `json:"equity"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "scalping", got.Result.Strategy)
	assert.Len(t, got.Result.Equity, 120)

	listed := run(t, dir, "results", "list")
	assert.Contains(t, listed, got.ID)

	shown := run(t, dir, "results", "show", got.ID)
	assert.Contains(t, shown, "scalping")
}

func TestStrategiesAndVersion(t *testing.T) {
	dir := t.TempDir()
	out := run(t, dir, "strategies")
	for _, name := range []string{"scalping", "day-trading", "swing-trading", "long-term", "reject"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, run(t, dir, "version"), "hindsight "+version)
}
