package triage

import (
	"testing"
	"time"

	"focustriage/internal/classifier"
	"focustriage/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func note(id int64, app string, tier classifier.Tier, at time.Time) Notification {
	return FromRecord(
		source.Record{ID: id, AppKey: app, Title: "t", ObservedAt: at},
		classifier.Classification{Tier: tier, SummaryLine: "s", Reason: "r"},
	)
}

func ids(ns []Notification) []int64 {
	out := make([]int64, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func TestAppName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "mail", AppName("com.app.mail"))
	assert.Equal(t, "Safari", AppName("Safari"))
	assert.Equal(t, "com.app.", AppName("com.app."))
	assert.Equal(t, "", AppName(""))
}

func TestScenario_GroupsAndCounts(t *testing.T) {
	t.Parallel()
	s := NewStore(0)
	invoice := func(id int64) Notification {
		n := note(id, "com.app.mail", classifier.High, t0)
		n.Title = "Invoice"
		return n
	}
	require.True(t, s.Merge([]Notification{
		invoice(1),
		invoice(2),
		note(3, "com.app.chat", classifier.Low, t0),
	}))

	groups := s.Groups()
	require.Len(t, groups, 2)
	byKey := map[string]Group{}
	for _, g := range groups {
		byKey[g.AppKey] = g
	}
	assert.Len(t, byKey["com.app.mail"].Notifications, 2)
	assert.Equal(t, "mail", byKey["com.app.mail"].AppName)
	assert.Len(t, byKey["com.app.chat"].Notifications, 1)
	assert.Equal(t, [4]int{0, 2, 0, 1}, s.Counts())
}

func TestMerge_DropsDuplicateIDs(t *testing.T) {
	t.Parallel()
	s := NewStore(0)
	require.True(t, s.Merge([]Notification{note(1, "a.x", classifier.Low, t0)}))
	assert.False(t, s.Merge([]Notification{note(1, "a.y", classifier.High, t0)}))
	assert.False(t, s.Merge(nil))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "a.x", s.Snapshot()[0].AppKey)
}

func TestGroups_OrderingAndTruncation(t *testing.T) {
	t.Parallel()
	s := NewStore(2)
	s.Merge([]Notification{
		note(1, "a.mail", classifier.Low, t0),
		note(2, "b.chat", classifier.Low, t0.Add(time.Minute)),
		note(3, "a.mail", classifier.Low, t0.Add(2*time.Minute)),
		note(4, "a.mail", classifier.Low, t0.Add(2*time.Minute)), // tie with 3, inserted later
		note(5, "a.mail", classifier.Low, t0.Add(-time.Minute)),
	})

	groups := s.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "a.mail", groups[0].AppKey)
	assert.Equal(t, []int64{4, 3}, ids(groups[0].Notifications))
	assert.Equal(t, 2, groups[0].Hidden)
	assert.Equal(t, "b.chat", groups[1].AppKey)
	assert.Equal(t, 0, groups[1].Hidden)

	// Pure projection.
	assert.Equal(t, groups, s.Groups())
	assert.Equal(t, 5, s.Len())
}

func TestClear(t *testing.T) {
	t.Parallel()
	s := NewStore(0)
	s.Merge([]Notification{
		note(1, "a.mail", classifier.Critical, t0),
		note(2, "a.mail", classifier.High, t0),
		note(3, "b.chat", classifier.Low, t0),
	})

	assert.True(t, s.ClearOne(2))
	assert.False(t, s.ClearOne(2))
	assert.Equal(t, 1, s.ClearApp("a.mail"))
	assert.Equal(t, 0, s.ClearApp("a.mail"))

	// A cleared ID may be merged again.
	assert.True(t, s.Merge([]Notification{note(1, "a.mail", classifier.Low, t0)}))

	assert.Equal(t, 2, s.ClearAll())
	assert.Empty(t, s.Groups())
	assert.Equal(t, [4]int{}, s.Counts())
	assert.Equal(t, 0, s.ClearAll())
}

func TestInjectSynthetic(t *testing.T) {
	t.Parallel()
	s := NewStore(0, WithClock(func() time.Time { return t0 }))

	assert.Equal(t, 8, s.InjectSynthetic(8))
	snap := s.Snapshot()
	require.Len(t, snap, 8)
	assert.Equal(t, []int64{-1, -2, -3, -4, -5, -6, -7, -8}, ids(snap))
	assert.Equal(t, "com.tinyspeck.slackmacgap", snap[0].AppKey)
	assert.Equal(t, "Slack", snap[0].AppName)
	assert.Equal(t, classifier.Critical, snap[0].Tier)
	assert.Equal(t, "com.apple.mobilemail", snap[5].AppKey)
	assert.Equal(t, classifier.High, snap[5].Tier)
	assert.Equal(t, classifier.Critical, snap[6].Tier)
	assert.Equal(t, t0, snap[0].ObservedAt)
	assert.Equal(t, [4]int{2, 3, 1, 2}, s.Counts())

	// IDs keep decreasing after clears.
	s.ClearAll()
	s.InjectSynthetic(1)
	assert.Equal(t, []int64{-9}, ids(s.Snapshot()))

	assert.Equal(t, 0, s.InjectSynthetic(0))
}

func TestSummaryItems(t *testing.T) {
	t.Parallel()
	n := note(1, "com.app.mail", classifier.High, t0)
	n.Body = "b"
	items := SummaryItems([]Notification{n})
	require.Len(t, items, 1)
	assert.Equal(t, classifier.SummaryItem{AppName: "mail", Tier: classifier.High, SummaryLine: "s", Body: "b"}, items[0])
}
