package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"focustriage/internal/classifier"
	"focustriage/internal/focus"
	"focustriage/internal/source"
	"focustriage/internal/triage"
	logx "focustriage/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowReader delays every read so overlapping cycles would see the same cursor.
type slowReader struct {
	fakeReader
	delay time.Duration
}

func (r *slowReader) ReadNew(ctx context.Context, since int64) ([]source.Record, error) {
	time.Sleep(r.delay)
	return r.fakeReader.ReadNew(ctx, since)
}

type countingClassifier struct {
	mu    sync.Mutex
	calls map[int64]int
}

func (c *countingClassifier) CanUse() bool { return true }

func (c *countingClassifier) Classify(_ context.Context, rec source.Record, _ string) classifier.Classification {
	c.mu.Lock()
	c.calls[rec.ID]++
	c.mu.Unlock()
	return classifier.Classification{Tier: classifier.Low, SummaryLine: rec.Title, Reason: "test"}
}

func (c *countingClassifier) Summarize(context.Context, []classifier.SummaryItem) string { return "" }

func TestPoll_ConcurrentCallsClassifyOnce(t *testing.T) {
	t.Parallel()
	reader := &slowReader{delay: 50 * time.Millisecond}
	reader.add(rec(1, "com.app.mail", "Invoice"))
	det := &fakeDetector{state: focus.Active}
	cls := &countingClassifier{calls: map[int64]int{}}
	o, err := New(Options{Reader: reader, Detector: det, Classifier: cls, Log: logx.Nop()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Poll(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, map[int64]int{1: 1}, cls.calls)
	assert.Equal(t, 1, o.Status().Stored)
	assert.Equal(t, int64(1), o.Cursor())
}

// gatedClassifier blocks inside Classify until release is closed.
type gatedClassifier struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedClassifier) CanUse() bool { return true }

func (g *gatedClassifier) Classify(_ context.Context, rec source.Record, _ string) classifier.Classification {
	g.entered <- struct{}{}
	<-g.release
	return classifier.Classification{Tier: classifier.Critical, SummaryLine: rec.Title, Reason: "test"}
}

func (g *gatedClassifier) Summarize(context.Context, []classifier.SummaryItem) string { return "" }

// gatedAlerter blocks inside Urgent until release is closed.
type gatedAlerter struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAlerter) Urgent(context.Context, triage.Notification) error {
	g.entered <- struct{}{}
	<-g.release
	return nil
}

func (g *gatedAlerter) FocusEnded(context.Context, int, string) error { return nil }

// queriesFinish fails the test unless Groups and ClearAll return while a
// cycle is blocked.
func queriesFinish(t *testing.T, o *Orchestrator) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = o.Groups()
		_ = o.Counts()
		_ = o.ClearAll()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("store operations blocked behind the cycle")
	}
}

func TestPoll_LockFreeWhileClassifying(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{}
	reader.add(rec(1, "com.app.ops", "fire"))
	cls := &gatedClassifier{entered: make(chan struct{}, 1), release: make(chan struct{})}
	o, err := New(Options{Reader: reader, Detector: &fakeDetector{state: focus.Active}, Classifier: cls, Log: logx.Nop()})
	require.NoError(t, err)

	polled := make(chan error, 1)
	go func() { polled <- o.Poll(context.Background()) }()

	<-cls.entered
	queriesFinish(t, o)
	close(cls.release)
	require.NoError(t, <-polled)
	assert.Equal(t, 1, o.Status().Stored)
}

func TestPoll_LockFreeWhileAlerting(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{}
	reader.add(rec(1, "com.app.ops", "fire"))
	cls := &gatedClassifier{entered: make(chan struct{}, 1), release: make(chan struct{})}
	close(cls.release)
	al := &gatedAlerter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	o, err := New(Options{
		Reader:     reader,
		Detector:   &fakeDetector{state: focus.Active},
		Classifier: cls,
		Alerter:    al,
		Log:        logx.Nop(),
	})
	require.NoError(t, err)

	polled := make(chan error, 1)
	go func() { polled <- o.Poll(context.Background()) }()

	<-al.entered
	queriesFinish(t, o)
	assert.Equal(t, 0, o.Status().Stored, "cleared while the alert was open")
	close(al.release)
	require.NoError(t, <-polled)
}

func TestCommitResults_StoreClearedBetweenPhases(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.o.Inject(3)
	h.o.mu.Lock()
	h.o.wasActive = true
	h.o.mu.Unlock()

	_, focusEnded, _, _ := h.o.commitRead(nil, focus.Inactive)
	require.True(t, focusEnded)

	h.o.ClearAll()
	assert.Nil(t, h.o.commitResults(nil, focusEnded))

	h.o.mu.Lock()
	defer h.o.mu.Unlock()
	assert.False(t, h.o.wasActive)
}
