package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"focustriage/internal/source"

	"golang.org/x/text/unicode/norm"
)

// ParseResponse extracts a Classification from backend text: the slice from
// the first '{' to the last '}' must be a JSON object carrying a known
// urgency_level. Blank summary_line and reason are filled locally; a
// summary_line is capped at 60 runes like the local default.
func ParseResponse(text string, rec source.Record) (Classification, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return Classification{}, fmt.Errorf("no JSON object in response")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return Classification{}, fmt.Errorf("decode response: %w", err)
	}

	tier, ok := ParseTier(stringField(obj, "urgency_level"))
	if !ok {
		return Classification{}, fmt.Errorf("unknown urgency_level %q", stringField(obj, "urgency_level"))
	}

	summary := strings.TrimSpace(stringField(obj, "summary_line"))
	if summary == "" {
		summary = DefaultSummaryLine(rec.Title, rec.Body, rec.Subtitle)
	} else {
		summary = truncateRunes(norm.NFC.String(summary), maxSummaryRunes)
	}
	reason := strings.TrimSpace(stringField(obj, "reason"))
	if reason == "" {
		reason = reasonUnknown
	}
	return Classification{Tier: tier, SummaryLine: summary, Reason: reason}, nil
}

// stringField returns obj[key] when it is a JSON string, else "".
func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
