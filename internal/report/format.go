// Package report renders backtest, optimization and comparison results as
// plain-text tables.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	out := groupThousands(s)
	if neg {
		return "-" + out
	}
	return out
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats an account-currency amount rounded half away from zero
// to cents, with comma separators: 12,345.68.
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	out := groupThousands(whole) + "." + frac
	if neg && strings.Trim(out, "0.,") != "" {
		return "-" + out
	}
	return out
}

// FormatPct formats a value already expressed in percent as "+X.XX%".
func FormatPct(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "-"
	}
	d := decimal.NewFromFloat(pct).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	if d.IsZero() {
		return "0.00%"
	}
	return d.StringFixed(2) + "%"
}

// FormatRatio formats a unitless ratio to the given decimal places.
func FormatRatio(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatDuration formats a hold time compactly: 45s, 12m, 3.5h, 2.1d.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}
