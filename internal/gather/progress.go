package gather

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// progressTracker remembers, per symbol, the timestamp of the newest price
// already fetched so repeated runs only request what is missing.
//
// The state lives in <dir>/.last-fetched, one "SYMBOL RFC3339" pair per line.
type progressTracker struct {
	mu   sync.Mutex
	path string
	last map[string]time.Time
}

// newProgressTracker creates a tracker rooted at dir and loads any existing
// entries.
func newProgressTracker(dir string) (*progressTracker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating progress dir: %w", err)
	}

	pt := &progressTracker{
		path: filepath.Join(dir, ".last-fetched"),
		last: make(map[string]time.Time),
	}

	data, err := os.ReadFile(pt.path)
	if err != nil {
		if os.IsNotExist(err) {
			return pt, nil
		}
		return nil, fmt.Errorf("reading .last-fetched: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		sym, ts, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		pt.last[sym] = t
	}
	return pt, nil
}

// LastFetched returns the newest fetched timestamp for symbol, or the zero
// time.
func (p *progressTracker) LastFetched(symbol string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last[symbol]
}

// MarkFetched advances the watermark for symbol and persists the state. An
// older timestamp than the stored one is ignored.
func (p *progressTracker) MarkFetched(symbol string, ts time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !ts.After(p.last[symbol]) {
		return nil
	}
	p.last[symbol] = ts.UTC()

	symbols := make([]string, 0, len(p.last))
	for s := range p.last {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	tmp := p.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing .last-fetched: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, s := range symbols {
		fmt.Fprintf(w, "%s %s\n", s, p.last[s].Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}
