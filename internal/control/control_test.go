package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"focustriage/internal/focus"
	"focustriage/internal/orchestrator"
	"focustriage/internal/rules"
	"focustriage/internal/source"
	logx "focustriage/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyReader struct{}

func (emptyReader) ReadNew(context.Context, int64) ([]source.Record, error) { return nil, nil }
func (emptyReader) LatestID(context.Context) (int64, error)                { return 0, nil }

type inactive struct{}

func (inactive) State(context.Context) focus.State { return focus.Inactive }

func newTestClient(t *testing.T, token string) (*Client, *orchestrator.Orchestrator) {
	t.Helper()
	o, err := orchestrator.New(orchestrator.Options{
		Reader:   emptyReader{},
		Detector: inactive{},
		Rules:    rules.Load(t.TempDir(), logx.Nop()),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(withAuth(token, Handler(o, logx.Nop())))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, token, 5*time.Second), o
}

func TestClient_TriageRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestClient(t, "")

	groups, err := c.Groups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	n, err := c.Inject(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = c.Inject(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	counts, err := c.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 38, counts.Total)
	assert.Equal(t, counts.Tiers[0], counts.Critical)

	groups, err = c.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 4)
	for _, g := range groups {
		assert.LessOrEqual(t, len(g.Notifications), 12)
		assert.Positive(t, len(g.Notifications))
	}

	summary, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "38 notifications")

	cleared, err := c.ClearOne(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	cleared, err = c.ClearApp(ctx, "com.apple.iCal")
	require.NoError(t, err)
	assert.Greater(t, cleared, 0)

	_, err = c.ClearAll(ctx)
	require.NoError(t, err)
	counts, err = c.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, [4]int{}, counts.Tiers)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "unavailable", st.Backend)
}

func TestClient_Rules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, o := newTestClient(t, "")

	require.NoError(t, c.SetContext(ctx, "com.app.mail", "bills matter"))
	list, err := c.Contexts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rules.AppContext{{AppKey: "com.app.mail", Context: "bills matter"}}, list)

	removed, err := c.DeleteContext(ctx, "com.app.mail")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = c.DeleteContext(ctx, "com.app.mail")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, c.Ignore(ctx, "com.spam"))
	ignored, err := c.Ignored(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.spam"}, ignored)
	assert.Equal(t, []string{"com.spam"}, o.IgnoredApps())

	removed, err = c.Unignore(ctx, "com.spam")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestHandler_BadRequests(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, "")
	ctx := context.Background()

	_, err := c.clear(ctx, nil)
	assert.ErrorContains(t, err, "exactly one of")

	_, err = c.clear(ctx, map[string][]string{"id": {"x"}})
	assert.ErrorContains(t, err, "400")

	_, err = c.clear(ctx, map[string][]string{"all": {"false"}})
	assert.ErrorContains(t, err, "all must be true")
}

func TestAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestClient(t, "s3cret")

	_, err := c.Counts(ctx)
	require.NoError(t, err)

	wrong := NewClient(c.base, "nope", time.Second)
	_, err = wrong.Counts(ctx)
	assert.ErrorContains(t, err, "401")

	resp, err := http.Get(c.base + "/healthz?token=s3cret")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestService_StartStop(t *testing.T) {
	t.Parallel()
	o, err := orchestrator.New(orchestrator.Options{Reader: emptyReader{}, Detector: inactive{}})
	require.NoError(t, err)

	svc := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, o, logx.Nop())
	assert.Error(t, svc.Start(context.Background()), "public addr without token")

	svc = New(Config{Enabled: true, Addr: "127.0.0.1:0", Pprof: true}, o, logx.Nop())
	require.NoError(t, svc.Start(context.Background()))
	addr := svc.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/debug/pprof/cmdline")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Reconfigure(ctx, Config{Enabled: false}))
	assert.Empty(t, svc.Addr())
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"127.0.0.1:1": true,
		"[::1]:1":     true,
		"localhost:1": true,
		":1":          false,
		"0.0.0.0:1":   false,
		"10.0.0.2:1":  false,
		"garbage":     false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, isLoopbackAddr(addr), addr)
	}
}
