package cli

import (
	"fmt"
	"io"
	"strings"

	"focustriage/internal/classifier"
	"focustriage/internal/triage"

	"github.com/fatih/color"
)

var tierColors = map[classifier.Tier]*color.Color{
	classifier.Critical: color.New(color.FgRed, color.Bold),
	classifier.High:     color.New(color.FgHiRed),
	classifier.Medium:   color.New(color.FgYellow),
	classifier.Low:      color.New(color.FgGreen),
}

var (
	dim    = color.New(color.Faint)
	header = color.New(color.FgHiBlue, color.Bold)
	good   = color.New(color.FgHiGreen)
	bad    = color.New(color.FgRed)
)

func disableColor() { color.NoColor = true }

func tierLabel(t classifier.Tier) string {
	c, found := tierColors[t]
	if !found {
		return t.Label()
	}
	return c.Sprintf("%-6s", t.Label())
}

func printCounts(w io.Writer, counts [4]int) {
	parts := make([]string, 0, len(classifier.Tiers))
	total := 0
	for i, t := range classifier.Tiers {
		total += counts[i]
		parts = append(parts, fmt.Sprintf("%s %d", tierColors[t].Sprint(t.Label()), counts[i]))
	}
	fmt.Fprintf(w, "%s  (%d total)\n", strings.Join(parts, "  "), total)
}

func printGroups(w io.Writer, groups []triage.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, dim.Sprint("No notifications."))
		return
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s %s\n", header.Sprint(g.AppName), dim.Sprintf("(%s)", g.AppKey))
		for _, n := range g.Notifications {
			line := n.SummaryLine
			if line == "" {
				line = n.Title
			}
			fmt.Fprintf(w, "  %s %s %s\n", tierLabel(n.Tier), line, dim.Sprintf("#%d", n.ID))
		}
		if g.Hidden > 0 {
			fmt.Fprintln(w, dim.Sprintf("  +%d more", g.Hidden))
		}
	}
}

func check(w io.Writer, label string, err error, detail string) {
	if err != nil {
		fmt.Fprintf(w, "%s %-12s %v\n", bad.Sprint("✗"), label, err)
		return
	}
	fmt.Fprintf(w, "%s %-12s %s\n", good.Sprint("✓"), label, detail)
}
