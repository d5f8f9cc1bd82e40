package classifier

import (
	"strings"
	"text/template"

	"focustriage/internal/source"
)

var classifyTmpl = template.Must(template.New("classify").Parse(`Analyze the notification below.
Reply with JSON only, no extra explanation.

Urgency criteria (judge by the cost of delay):
- critical: real damage happens unless handled now and it compounds by the minute (e.g. production outage, security incident, emergency message from family)
- high: must be seen within hours, right after focus ends (e.g. direct mention from a manager, reminder due today, blocking approval request)
- medium: same-day is fine; a delay of half a day does no harm (e.g. PR review request, general chat, meeting notice)
- low: safe to ignore; no real harm if never seen (e.g. marketing, social media likes, app update notices)

Schema:
{"summary_line":"summary in 30 characters or fewer","reason":"one-sentence reason","urgency_level":"critical|high|medium|low"}

Notification:
App: {{.AppKey}}
Title: {{.Title}}
Subtitle: {{.Subtitle}}
Body: {{.Body}}
{{if .Context}}
Additional context for this app: {{.Context}}
{{end}}`))

var summaryTmpl = template.Must(template.New("summary").Parse(`Summarize the notifications below concisely.
Group them by app and make the order of handling clear.

{{range .}}[{{.AppName}}][{{.Tier.Label}}] {{.SummaryLine}}: {{.Body}}
{{end}}`))

type promptData struct {
	source.Record
	Context string
}

// BuildPrompt renders the classification prompt for rec. extra is the
// optional per-app context from the rules file.
func BuildPrompt(rec source.Record, extra string) string {
	var b strings.Builder
	// Execute only fails on template/data mismatch, which the types rule out.
	_ = classifyTmpl.Execute(&b, promptData{Record: rec, Context: strings.TrimSpace(extra)})
	return b.String()
}

// BuildSummaryPrompt renders the digest prompt.
func BuildSummaryPrompt(items []SummaryItem) string {
	var b strings.Builder
	_ = summaryTmpl.Execute(&b, items)
	return b.String()
}
