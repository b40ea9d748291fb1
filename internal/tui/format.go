package tui

import (
	"fmt"

	"github.com/nextlevelbuilder/mogzi/internal/sessions"
)

// FormatTokens abbreviates a token count for the footer: 345, 1.9k, 15k,
// 1.9m. Fractions are truncated, not rounded.
func FormatTokens(n int64) string {
	switch {
	case n < 1_000:
		return fmt.Sprintf("%d", n)
	case n < 10_000:
		return fmt.Sprintf("%d.%dk", n/1_000, (n%1_000)/100)
	case n < 1_000_000:
		return fmt.Sprintf("%dk", n/1_000)
	default:
		return fmt.Sprintf("%d.%dm", n/1_000_000, (n%1_000_000)/100_000)
	}
}

// Footer renders the one-line usage summary shown under the editor.
func Footer(m sessions.UsageMetrics, contextWindow int) string {
	used := m.InputTokens + m.OutputTokens + m.CacheReadTokens + m.CacheWriteTokens
	pct := int64(0)
	if contextWindow > 0 {
		pct = used * 100 / int64(contextWindow)
	}
	return fmt.Sprintf("Tokens: ↑ %s ↓ %s  Cache: --  Context: %s/%s (%d%%)",
		FormatTokens(m.InputTokens),
		FormatTokens(m.OutputTokens),
		FormatTokens(used),
		FormatTokens(int64(contextWindow)),
		pct)
}
