package tui

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/mogzi/internal/sessions"
)

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{345, "345"},
		{999, "999"},
		{1000, "1.0k"},
		{1900, "1.9k"},
		{9999, "9.9k"},
		{10000, "10k"},
		{15000, "15k"},
		{999999, "999k"},
		{1000000, "1.0m"},
		{1900000, "1.9m"},
		{12345678, "12.3m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatTokens(tt.n); got != tt.want {
				t.Errorf("FormatTokens(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestFooter(t *testing.T) {
	m := sessions.UsageMetrics{InputTokens: 1900, OutputTokens: 345}
	got := Footer(m, 200000)

	for _, want := range []string{"Tokens: ↑ 1.9k ↓ 345", "Cache: --", "Context: 2.2k/200k (1%)"} {
		if !strings.Contains(got, want) {
			t.Errorf("footer missing %q: %q", want, got)
		}
	}
}
