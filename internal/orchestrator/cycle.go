package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"

	"focustriage/internal/classifier"
	"focustriage/internal/eventbus"
	"focustriage/internal/focus"
	"focustriage/internal/schedule"
	"focustriage/internal/source"
	"focustriage/internal/triage"
	logx "focustriage/pkg/logx"

	"github.com/google/uuid"
)

type pendingRecord struct {
	rec     source.Record
	context string
}

// Poll runs one cycle. Concurrent calls run one after another. A panic
// abandons the cycle and is returned as an error; the caller keeps polling.
func (o *Orchestrator) Poll(ctx context.Context) (err error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	log := o.log.With(logx.String("cycle", uuid.NewString()[:8]))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			log.Warn("cycle abandoned", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
		o.finishCycle(err)
	}()

	// Read and detect. cycleMu makes this cycle the only cursor writer, so
	// the snapshot stays valid until the commit below.
	o.mu.Lock()
	since := o.cursor
	o.mu.Unlock()

	recs, err := o.reader.ReadNew(ctx, since)
	if err != nil {
		log.Warn("read failed; cursor unchanged", logx.Int64("cursor", since), logx.Err(err))
		return fmt.Errorf("read notifications: %w", err)
	}
	state := o.detector.State(ctx)

	pending, focusEnded, ignored, cursor := o.commitRead(recs, state)

	if len(recs) > 0 {
		log.Debug("records read",
			logx.Int("read", len(recs)),
			logx.Int("pending", len(pending)),
			logx.Int("ignored", ignored),
			logx.String("focus", state.String()),
			logx.Int64("cursor", cursor),
		)
	}

	// Classify.
	results := make([]triage.Notification, 0, len(pending))
	var urgent []triage.Notification
	for _, p := range pending {
		c := o.cls.Classify(ctx, p.rec, p.context)
		n := triage.FromRecord(p.rec, c)
		results = append(results, n)
		if c.Tier == classifier.Critical {
			urgent = append(urgent, n)
		}
	}

	ended := o.commitResults(results, focusEnded)

	// Side effects.
	if len(ended) > 0 {
		summary := o.summarize(ctx, ended)
		log.Info("focus ended", logx.Int("count", len(ended)))
		o.bus.Publish(eventbus.Event{
			Type: eventbus.TopicFocusEnded,
			Time: o.now(),
			Data: eventbus.FocusEnded{Count: len(ended), Summary: summary},
		})
		if o.alerter != nil {
			if err := o.alerter.FocusEnded(ctx, len(ended), summary); err != nil {
				log.Warn("focus-ended alert failed", logx.Err(err))
			}
		}
	}
	for _, n := range urgent {
		log.Info("urgent notification",
			logx.Int64("id", n.ID),
			logx.String("app", n.AppKey),
			logx.String("summary", n.SummaryLine),
		)
		if o.alerter == nil {
			continue
		}
		if err := o.alerter.Urgent(ctx, n); err != nil {
			log.Warn("urgent alert failed", logx.Int64("id", n.ID), logx.Err(err))
		}
	}
	return nil
}

// commitRead advances the cursor and the focus edge, and selects the records
// to classify.
func (o *Orchestrator) commitRead(recs []source.Record, state focus.State) (pending []pendingRecord, focusEnded bool, ignored int, cursor int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range recs {
		if rec.ID > o.cursor {
			o.cursor = rec.ID
		}
	}
	switch {
	case state == focus.Active:
		o.wasActive = true
		for _, rec := range recs {
			if o.rules.Ignored.Contains(rec.AppKey) {
				ignored++
				continue
			}
			pending = append(pending, pendingRecord{rec: rec, context: o.rules.Contexts.Get(rec.AppKey)})
		}
	case o.wasActive && o.store.Len() > 0:
		focusEnded = true
	default:
		o.wasActive = false
	}
	return pending, focusEnded, ignored, o.cursor
}

// commitResults stores classified notifications. When focus just ended it
// returns the stored set for the summary.
func (o *Orchestrator) commitResults(results []triage.Notification, focusEnded bool) []triage.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.store.Merge(results) {
		o.publishCountsLocked()
	}
	if !focusEnded {
		return nil
	}
	o.wasActive = false
	// The store may have been cleared since commitRead; no summary for an
	// empty store.
	if o.store.Len() == 0 {
		return nil
	}
	return o.store.Snapshot()
}

func (o *Orchestrator) finishCycle(err error) {
	o.mu.Lock()
	o.cycles++
	o.lastCycle = o.now()
	o.lastErr = ""
	if err != nil {
		o.failures++
		o.lastErr = err.Error()
	}
	o.mu.Unlock()
	if err != nil {
		o.bus.Publish(eventbus.Event{Type: eventbus.TopicCycleFailed, Time: o.now(), Data: err.Error()})
	}
}

// Run polls on spec until ctx is done. afterCycle, when set, runs after
// every cycle (used for watchdog heartbeats).
func (o *Orchestrator) Run(ctx context.Context, spec schedule.Spec, afterCycle func(err error)) error {
	o.log.Info("triage loop started", logx.String("schedule", spec.String()))
	for {
		err := o.Poll(ctx)
		if afterCycle != nil {
			afterCycle(err)
		}
		if !spec.Sleep(ctx, o.now()) {
			o.log.Info("triage loop stopped")
			return ctx.Err()
		}
	}
}
