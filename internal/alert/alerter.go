package alert

import (
	"context"
	"fmt"

	"focustriage/internal/triage"
)

const (
	titleUrgent     = "Urgent notification"
	titleFocusEnded = "Focus mode ended"
	titleSummary    = "Notification summary"
)

// Alerter renders triage events as alerts.
type Alerter struct {
	svc *Service
}

func NewAlerter(svc *Service) *Alerter { return &Alerter{svc: svc} }

// Urgent shows a dialog for n and blocks until it is dismissed.
func (a *Alerter) Urgent(ctx context.Context, n triage.Notification) error {
	return a.svc.Prompt(ctx, Alert{
		Title: titleUrgent,
		Body:  n.Title + "\n" + n.Body,
		Level: LevelUrgent,
	})
}

// FocusEnded queues a banner with the waiting count and a dialog with the summary.
func (a *Alerter) FocusEnded(ctx context.Context, count int, summary string) error {
	if err := a.svc.Notify(ctx, Alert{
		Title: titleFocusEnded,
		Body:  fmt.Sprintf("%d notifications waiting", count),
	}); err != nil {
		return err
	}
	return a.Digest(ctx, summary)
}

// Digest queues summary as a dialog.
func (a *Alerter) Digest(ctx context.Context, summary string) error {
	return a.svc.Notify(ctx, Alert{Title: titleSummary, Body: summary, Modal: true})
}
