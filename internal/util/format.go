package util

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// FormatTokens formats an optional token count with K/M suffix for readability.
// Examples: nil -> "-", 500 -> "500", 1500 -> "1.5K", 1500000 -> "1.5M"
func FormatTokens(n *int) string {
	if n == nil {
		return "-"
	}
	v := *n
	if v < 1000 {
		return fmt.Sprintf("%d", v)
	}
	if v < 1000000 {
		return fmt.Sprintf("%.1fK", float64(v)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(v)/1000000)
}

// FormatSeconds renders an execution time in seconds.
func FormatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%.0fms", s*1000)
	}
	return fmt.Sprintf("%.2fs", s)
}

// FormatDateTime formats a timestamp to date-time format (2006-01-02 15:04).
// The zero time renders as "-".
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
