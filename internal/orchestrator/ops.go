package orchestrator

import (
	"context"

	"focustriage/internal/rules"
	"focustriage/internal/triage"
)

func (o *Orchestrator) Groups() []triage.Group {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Groups()
}

func (o *Orchestrator) Counts() [4]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Counts()
}

func (o *Orchestrator) ClearOne(id int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	ok := o.store.ClearOne(id)
	if ok {
		o.publishCountsLocked()
	}
	return ok
}

func (o *Orchestrator) ClearApp(appKey string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := o.store.ClearApp(appKey)
	if n > 0 {
		o.publishCountsLocked()
	}
	return n
}

func (o *Orchestrator) ClearAll() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := o.store.ClearAll()
	if n > 0 {
		o.publishCountsLocked()
	}
	return n
}

// Inject adds synthetic demo notifications. n <= 0 means DefaultInjectCount;
// larger requests are capped at the configured maximum.
func (o *Orchestrator) Inject(n int) int {
	if n <= 0 {
		n = DefaultInjectCount
	}
	n = min(n, o.maxInject)
	o.mu.Lock()
	defer o.mu.Unlock()
	added := o.store.InjectSynthetic(n)
	o.publishCountsLocked()
	return added
}

// Summarize returns a digest of everything currently stored.
func (o *Orchestrator) Summarize(ctx context.Context) string {
	o.mu.Lock()
	snap := o.store.Snapshot()
	o.mu.Unlock()
	return o.summarize(ctx, snap)
}

func (o *Orchestrator) summarize(ctx context.Context, ns []triage.Notification) string {
	if len(ns) == 0 {
		return noNotificationsText
	}
	return o.cls.Summarize(ctx, triage.SummaryItems(ns))
}

func (o *Orchestrator) Contexts() []rules.AppContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rules.Contexts.List()
}

func (o *Orchestrator) SetContext(appKey, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rules.Contexts.Set(appKey, text)
}

func (o *Orchestrator) DeleteContext(appKey string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rules.Contexts.Delete(appKey)
}

func (o *Orchestrator) IgnoredApps() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rules.Ignored.List()
}

func (o *Orchestrator) IgnoreApp(appKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rules.Ignored.Add(appKey)
}

func (o *Orchestrator) UnignoreApp(appKey string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rules.Ignored.Remove(appKey)
}
