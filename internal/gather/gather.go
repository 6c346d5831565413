// Package gather fills the price store: from the Alpaca market-data API or
// from CSV exports.
package gather

import (
	"context"
	"time"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass and returns when it is done or ctx is
	// cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds. An empty end means now.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if r.Start, err = time.Parse(time.DateOnly, start); err != nil {
		return r, err
	}
	if end == "" {
		r.End = time.Now().UTC()
		return r, nil
	}
	if r.End, err = time.Parse(time.DateOnly, end); err != nil {
		return r, err
	}
	return r, nil
}
