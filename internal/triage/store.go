package triage

import (
	"sort"
	"time"

	"focustriage/internal/classifier"
)

const DefaultMaxPerApp = 12

// Group is one app's notifications, newest first, truncated to MaxPerApp.
type Group struct {
	AppKey        string         `json:"app_key"`
	AppName       string         `json:"app_name"`
	Notifications []Notification `json:"notifications"`
	Hidden        int            `json:"hidden"`
}

type Store struct {
	maxPerApp int
	now       func() time.Time

	items []Notification
	ids   map[int64]struct{}
	seq   uint64

	// lastSynthetic only decreases, so synthetic IDs are never reused.
	lastSynthetic int64
}

type Option func(*Store)

// WithClock sets the clock used to stamp synthetic notifications.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(maxPerApp int, opts ...Option) *Store {
	if maxPerApp <= 0 {
		maxPerApp = DefaultMaxPerApp
	}
	s := &Store{maxPerApp: maxPerApp, now: time.Now, ids: map[int64]struct{}{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) MaxPerApp() int { return s.maxPerApp }

func (s *Store) Len() int { return len(s.items) }

// Merge appends ns in order, dropping any whose ID is already stored.
// It reports whether anything was appended.
func (s *Store) Merge(ns []Notification) bool {
	added := false
	for _, n := range ns {
		if _, dup := s.ids[n.ID]; dup {
			continue
		}
		s.seq++
		n.seq = s.seq
		s.items = append(s.items, n)
		s.ids[n.ID] = struct{}{}
		added = true
	}
	return added
}

// newestFirst orders by ObservedAt descending, later insertion first on ties.
func newestFirst(a, b Notification) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	return a.seq > b.seq
}

// Groups is a pure projection: groups ordered by their newest member.
func (s *Store) Groups() []Group {
	sorted := make([]Notification, len(s.items))
	copy(sorted, s.items)
	sort.SliceStable(sorted, func(i, j int) bool { return newestFirst(sorted[i], sorted[j]) })

	var groups []Group
	index := map[string]int{}
	for _, n := range sorted {
		gi, ok := index[n.AppKey]
		if !ok {
			gi = len(groups)
			index[n.AppKey] = gi
			groups = append(groups, Group{AppKey: n.AppKey, AppName: n.AppName})
		}
		g := &groups[gi]
		if len(g.Notifications) < s.maxPerApp {
			g.Notifications = append(g.Notifications, n)
		} else {
			g.Hidden++
		}
	}
	return groups
}

// Counts returns per-tier totals indexed Critical, High, Medium, Low.
func (s *Store) Counts() [4]int {
	var c [4]int
	for _, n := range s.items {
		if n.Tier >= classifier.Critical && n.Tier <= classifier.Low {
			c[n.Tier]++
		}
	}
	return c
}

// Snapshot copies the stored notifications in insertion order.
func (s *Store) Snapshot() []Notification {
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) removeIf(pred func(Notification) bool) int {
	kept := s.items[:0]
	removed := 0
	for _, n := range s.items {
		if pred(n) {
			delete(s.ids, n.ID)
			removed++
			continue
		}
		kept = append(kept, n)
	}
	clear(s.items[len(kept):])
	s.items = kept
	return removed
}

func (s *Store) ClearOne(id int64) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	return s.removeIf(func(n Notification) bool { return n.ID == id }) > 0
}

func (s *Store) ClearApp(appKey string) int {
	return s.removeIf(func(n Notification) bool { return n.AppKey == appKey })
}

func (s *Store) ClearAll() int {
	n := len(s.items)
	s.items = nil
	s.ids = map[int64]struct{}{}
	return n
}

// InjectSynthetic appends n demo notifications with fresh negative IDs,
// cycling through the sample apps and samples. It returns n.
func (s *Store) InjectSynthetic(n int) int {
	if n <= 0 {
		return 0
	}
	now := s.now()
	batch := make([]Notification, 0, n)
	for i := range n {
		s.lastSynthetic--
		app := sampleApps[i%len(sampleApps)]
		sm := samples[i%len(samples)]
		batch = append(batch, Notification{
			ID:         s.lastSynthetic,
			AppKey:     app.key,
			AppName:    app.name,
			Title:      sm.title,
			Body:       sm.body,
			Subtitle:   syntheticSubtitle,
			ObservedAt: now,
			Classification: classifier.Classification{
				Tier:        sm.tier,
				SummaryLine: sm.title,
				Reason:      sm.reason,
			},
		})
	}
	s.Merge(batch)
	return n
}
