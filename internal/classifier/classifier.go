// Package classifier assigns an urgency tier, a one-line summary and a reason
// to each notification. A text-generation backend does the judging; any
// backend failure degrades to a deterministic local fallback, so callers
// always get a complete Classification.
package classifier

import (
	"context"

	"focustriage/internal/source"
)

const (
	reasonUnknown     = "could not determine reason"
	reasonUnavailable = "classifier unavailable, treated as medium priority"
)

// Classification is produced exactly once per record and never mutated.
type Classification struct {
	Tier        Tier   `json:"tier"`
	SummaryLine string `json:"summary_line"`
	Reason      string `json:"reason"`
}

// SummaryItem is the view of a stored notification used for digest summaries.
type SummaryItem struct {
	AppName     string
	Tier        Tier
	SummaryLine string
	Body        string
}

// Classifier never fails: errors degrade to Fallback / FallbackSummary.
type Classifier interface {
	// CanUse reports whether a real backend sits behind the classifier.
	CanUse() bool
	Classify(ctx context.Context, rec source.Record, extraContext string) Classification
	Summarize(ctx context.Context, items []SummaryItem) string
}

// Fallback is the classification used when no backend answer is usable.
func Fallback(rec source.Record) Classification {
	return Classification{
		Tier:        Medium,
		SummaryLine: DefaultSummaryLine(rec.Title, rec.Body, rec.Subtitle),
		Reason:      reasonUnavailable,
	}
}

// Unavailable is the classifier used when no backend is reachable.
type Unavailable struct{}

func (Unavailable) CanUse() bool { return false }

func (Unavailable) Classify(_ context.Context, rec source.Record, _ string) Classification {
	return Fallback(rec)
}

func (Unavailable) Summarize(_ context.Context, items []SummaryItem) string {
	return FallbackSummary(items)
}
