package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"focustriage/internal/classifier"
	"focustriage/internal/eventbus"
	"focustriage/internal/focus"
	"focustriage/internal/rules"
	"focustriage/internal/source"
	"focustriage/internal/triage"
	logx "focustriage/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu      sync.Mutex
	records []source.Record
	err     error
	sinces  []int64
}

func (f *fakeReader) add(recs ...source.Record) {
	f.mu.Lock()
	f.records = append(f.records, recs...)
	f.mu.Unlock()
}

func (f *fakeReader) ReadNew(_ context.Context, since int64) ([]source.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinces = append(f.sinces, since)
	if f.err != nil {
		return nil, f.err
	}
	var out []source.Record
	for _, r := range f.records {
		if r.ID > since {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReader) LatestID(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var latest int64
	for _, r := range f.records {
		latest = max(latest, r.ID)
	}
	return latest, nil
}

type fakeDetector struct {
	mu    sync.Mutex
	state focus.State
}

func (f *fakeDetector) set(s focus.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeDetector) State(context.Context) focus.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// fakeClassifier maps titles to tiers and records every classified ID.
type fakeClassifier struct {
	tiers  map[string]classifier.Tier
	seen   []int64
	ctxs   map[int64]string
	panics bool
}

func (f *fakeClassifier) CanUse() bool { return true }

func (f *fakeClassifier) Classify(_ context.Context, rec source.Record, extra string) classifier.Classification {
	if f.panics {
		panic("classifier exploded")
	}
	f.seen = append(f.seen, rec.ID)
	if f.ctxs == nil {
		f.ctxs = map[int64]string{}
	}
	f.ctxs[rec.ID] = extra
	tier, ok := f.tiers[rec.Title]
	if !ok {
		tier = classifier.Medium
	}
	return classifier.Classification{Tier: tier, SummaryLine: rec.Title, Reason: "test"}
}

func (f *fakeClassifier) Summarize(_ context.Context, items []classifier.SummaryItem) string {
	return fmt.Sprintf("digest of %d", len(items))
}

type focusEndedCall struct {
	count   int
	summary string
}

type fakeAlerter struct {
	urgent []int64
	ended  []focusEndedCall
}

func (f *fakeAlerter) Urgent(_ context.Context, n triage.Notification) error {
	f.urgent = append(f.urgent, n.ID)
	return nil
}

func (f *fakeAlerter) FocusEnded(_ context.Context, count int, summary string) error {
	f.ended = append(f.ended, focusEndedCall{count, summary})
	return nil
}

type harness struct {
	o      *Orchestrator
	reader *fakeReader
	det    *fakeDetector
	cls    *fakeClassifier
	alert  *fakeAlerter
	rules  rules.Set
	bus    eventbus.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reader: &fakeReader{},
		det:    &fakeDetector{},
		cls:    &fakeClassifier{tiers: map[string]classifier.Tier{}},
		alert:  &fakeAlerter{},
		rules:  rules.Load(t.TempDir(), logx.Nop()),
		bus:    eventbus.New(),
	}
	o, err := New(Options{
		Reader:     h.reader,
		Detector:   h.det,
		Classifier: h.cls,
		Alerter:    h.alert,
		Rules:      h.rules,
		Bus:        h.bus,
		Log:        logx.Nop(),
	})
	require.NoError(t, err)
	h.o = o
	return h
}

func rec(id int64, app, title string) source.Record {
	return source.Record{ID: id, AppKey: app, Title: title, ObservedAt: time.Unix(1700000000+id, 0)}
}

func TestNew_RequiresReaderAndDetector(t *testing.T) {
	t.Parallel()
	_, err := New(Options{Detector: &fakeDetector{}})
	assert.Error(t, err)
	_, err = New(Options{Reader: &fakeReader{}})
	assert.Error(t, err)
}

func TestInit_StartsAtLatest(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.reader.add(rec(40, "a.b", "old"), rec(41, "a.b", "old"))
	require.NoError(t, h.o.Init(context.Background()))
	assert.Equal(t, int64(41), h.o.Cursor())

	h.det.set(focus.Active)
	require.NoError(t, h.o.Poll(context.Background()))
	assert.Empty(t, h.cls.seen, "history before start must not be triaged")

	h.reader.err = errors.New("locked")
	assert.Error(t, h.o.Init(context.Background()))
}

func TestPoll_InactiveRecordsNeverStored(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.reader.add(rec(1, "com.app.mail", "a"), rec(2, "com.app.mail", "b"))

	require.NoError(t, h.o.Poll(context.Background()))
	assert.Equal(t, int64(2), h.o.Cursor())
	assert.Empty(t, h.o.Groups())
	assert.Empty(t, h.cls.seen)

	// Becoming active does not resurrect consumed records.
	h.det.set(focus.Active)
	require.NoError(t, h.o.Poll(context.Background()))
	assert.Empty(t, h.o.Groups())
}

func TestPoll_FocusEndedFiresOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.cls.tiers["Invoice"] = classifier.High
	h.cls.tiers["ping"] = classifier.Low
	updates, unsub := h.bus.Subscribe(32)
	defer unsub()

	h.det.set(focus.Active)
	h.reader.add(rec(1, "com.app.mail", "Invoice"), rec(2, "com.app.mail", "Invoice"), rec(3, "com.app.chat", "ping"))
	require.NoError(t, h.o.Poll(context.Background()))

	groups := h.o.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, [4]int{0, 2, 0, 1}, h.o.Counts())
	assert.Empty(t, h.alert.ended)

	h.det.set(focus.Inactive)
	require.NoError(t, h.o.Poll(context.Background()))
	require.Len(t, h.alert.ended, 1)
	assert.Equal(t, focusEndedCall{count: 3, summary: "digest of 3"}, h.alert.ended[0])

	require.NoError(t, h.o.Poll(context.Background()))
	assert.Len(t, h.alert.ended, 1)

	var sawUpdate, sawEnded bool
	for len(updates) > 0 {
		ev := <-updates
		switch ev.Type {
		case eventbus.TopicTriageUpdated:
			sawUpdate = true
			assert.Equal(t, eventbus.Counts{Total: 3, Tiers: [4]int{0, 2, 0, 1}}, ev.Data)
		case eventbus.TopicFocusEnded:
			sawEnded = true
			assert.Equal(t, eventbus.FocusEnded{Count: 3, Summary: "digest of 3"}, ev.Data)
		}
	}
	assert.True(t, sawUpdate)
	assert.True(t, sawEnded)
}

func TestPoll_FocusEndedSkippedWhenStoreEmpty(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.det.set(focus.Active)
	require.NoError(t, h.o.Poll(context.Background()))
	h.det.set(focus.Inactive)
	require.NoError(t, h.o.Poll(context.Background()))
	assert.Empty(t, h.alert.ended)
}

func TestPoll_IgnoredConsumedByCursor(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	require.NoError(t, h.o.IgnoreApp("com.spam"))
	require.NoError(t, h.o.SetContext("com.app.mail", "bills matter"))

	h.det.set(focus.Active)
	h.reader.add(rec(5, "com.spam", "buy now"), rec(6, "com.app.mail", "Invoice"))
	require.NoError(t, h.o.Poll(context.Background()))

	assert.Equal(t, int64(6), h.o.Cursor())
	assert.Equal(t, []int64{6}, h.cls.seen)
	assert.Equal(t, "bills matter", h.cls.ctxs[6])
	require.Len(t, h.o.Groups(), 1)
	assert.Equal(t, "com.app.mail", h.o.Groups()[0].AppKey)

	// Each record is classified at most once.
	require.NoError(t, h.o.Poll(context.Background()))
	assert.Equal(t, []int64{6}, h.cls.seen)
}

func TestPoll_ReadErrorLeavesCursor(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.det.set(focus.Active)
	h.reader.add(rec(1, "a.b", "x"))
	require.NoError(t, h.o.Poll(context.Background()))

	h.reader.err = errors.New("database is locked")
	h.reader.add(rec(2, "a.b", "y"))
	assert.Error(t, h.o.Poll(context.Background()))
	assert.Equal(t, int64(1), h.o.Cursor())
	st := h.o.Status()
	assert.Equal(t, uint64(2), st.Cycles)
	assert.Equal(t, uint64(1), st.Failures)
	assert.Contains(t, st.LastError, "database is locked")

	h.reader.err = nil
	require.NoError(t, h.o.Poll(context.Background()))
	assert.Equal(t, int64(2), h.o.Cursor())
	assert.Empty(t, h.o.Status().LastError)
}

func TestPoll_UrgentAlertsInReadOrder(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.cls.tiers["fire"] = classifier.Critical
	h.det.set(focus.Active)
	h.reader.add(rec(7, "a.ops", "fire"), rec(8, "a.ops", "calm"), rec(9, "a.ops", "fire"))
	require.NoError(t, h.o.Poll(context.Background()))
	assert.Equal(t, []int64{7, 9}, h.alert.urgent)
}

func TestPoll_PanicRecovered(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.cls.panics = true
	h.det.set(focus.Active)
	h.reader.add(rec(1, "a.b", "x"))

	err := h.o.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier exploded")

	// The mutex was released and the loop can continue.
	h.cls.panics = false
	h.reader.add(rec(2, "a.b", "y"))
	require.NoError(t, h.o.Poll(context.Background()))
	assert.Equal(t, int64(2), h.o.Cursor())
	assert.Equal(t, []int64{2}, h.cls.seen)
}

func TestInject_ClampsAndPublishes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	updates, unsub := h.bus.Subscribe(8)
	defer unsub()

	assert.Equal(t, DefaultInjectCount, h.o.Inject(0))
	assert.Equal(t, DefaultMaxInject, h.o.Inject(100))
	assert.Equal(t, 1, h.o.Inject(1))
	assert.Len(t, updates, 3)

	total := 0
	for _, c := range h.o.Counts() {
		total += c
	}
	assert.Equal(t, DefaultInjectCount+DefaultMaxInject+1, total)
}

func TestClearAndSummarize(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	assert.Equal(t, "No notifications.", h.o.Summarize(context.Background()))

	h.o.Inject(4)
	assert.Equal(t, "digest of 4", h.o.Summarize(context.Background()))
	assert.True(t, h.o.ClearOne(-1))
	assert.False(t, h.o.ClearOne(-1))
	assert.Equal(t, 1, h.o.ClearApp("com.apple.mobilemail"))
	assert.Equal(t, 2, h.o.ClearAll())
	assert.Empty(t, h.o.Groups())
	assert.Equal(t, [4]int{}, h.o.Counts())
}

func TestRulesOps(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	require.NoError(t, h.o.SetContext("a.b", "ctx"))
	assert.Equal(t, []rules.AppContext{{AppKey: "a.b", Context: "ctx"}}, h.o.Contexts())
	removed, err := h.o.DeleteContext("a.b")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, h.o.IgnoreApp("z"))
	require.NoError(t, h.o.IgnoreApp("a"))
	assert.Equal(t, []string{"a", "z"}, h.o.IgnoredApps())
	removed, err = h.o.UnignoreApp("q")
	require.NoError(t, err)
	assert.False(t, removed)
}
