package classifier

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	maxSummaryRunes = 60
	untitled        = "Untitled notification"
)

// DefaultSummaryLine picks the first non-blank of title, body and subtitle,
// NFC-normalizes it and truncates to 60 runes with a trailing ellipsis.
func DefaultSummaryLine(title, body, subtitle string) string {
	text := untitled
	for _, s := range []string{title, body, subtitle} {
		if s = strings.TrimSpace(s); s != "" {
			text = s
			break
		}
	}
	return truncateRunes(norm.NFC.String(text), maxSummaryRunes)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// FallbackSummary is the deterministic digest: a headline with totals and one
// line per app, apps sorted by name.
func FallbackSummary(items []SummaryItem) string {
	counts := map[string]int{}
	critical := 0
	for _, it := range items {
		counts[it.AppName]++
		if it.Tier == Critical {
			critical++
		}
	}
	apps := make([]string, 0, len(counts))
	for app := range counts {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	var b strings.Builder
	fmt.Fprintf(&b, "%d notifications (critical: %d)", len(items), critical)
	for _, app := range apps {
		fmt.Fprintf(&b, "\n%s: %d", app, counts[app])
	}
	return b.String()
}
