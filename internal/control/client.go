package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"focustriage/internal/orchestrator"
	"focustriage/internal/rules"
	"focustriage/internal/triage"
)

// Client talks to a running control server.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient accepts "host:port" or a full http URL.
func NewClient(addr, token string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if base == "" {
		base = DefaultAddr
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{base: base, token: strings.TrimSpace(token), http: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("control request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var er ErrorResponse
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(b, &er) == nil && er.Error != "" {
			return fmt.Errorf("control %s %s: %s: %s", method, path, resp.Status, er.Error)
		}
		return fmt.Errorf("control %s %s: %s", method, path, resp.Status)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Status(ctx context.Context) (orchestrator.Status, error) {
	var out orchestrator.Status
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, nil, &out)
	return out, err
}

func (c *Client) Groups(ctx context.Context) ([]triage.Group, error) {
	var out []triage.Group
	err := c.do(ctx, http.MethodGet, "/v1/groups", nil, nil, &out)
	return out, err
}

func (c *Client) Counts(ctx context.Context) (CountsResponse, error) {
	var out CountsResponse
	err := c.do(ctx, http.MethodGet, "/v1/counts", nil, nil, &out)
	return out, err
}

func (c *Client) Summary(ctx context.Context) (string, error) {
	var out SummaryResponse
	err := c.do(ctx, http.MethodGet, "/v1/summary", nil, nil, &out)
	return out.Summary, err
}

func (c *Client) ClearOne(ctx context.Context, id int64) (int, error) {
	return c.clear(ctx, url.Values{"id": {strconv.FormatInt(id, 10)}})
}

func (c *Client) ClearApp(ctx context.Context, appKey string) (int, error) {
	return c.clear(ctx, url.Values{"app": {appKey}})
}

func (c *Client) ClearAll(ctx context.Context) (int, error) {
	return c.clear(ctx, url.Values{"all": {"true"}})
}

func (c *Client) clear(ctx context.Context, q url.Values) (int, error) {
	var out ClearResponse
	err := c.do(ctx, http.MethodPost, "/v1/clear", q, nil, &out)
	return out.Cleared, err
}

// Inject asks for n synthetic notifications; 0 uses the server default.
func (c *Client) Inject(ctx context.Context, n int) (int, error) {
	var q url.Values
	if n != 0 {
		q = url.Values{"count": {strconv.Itoa(n)}}
	}
	var out InjectResponse
	err := c.do(ctx, http.MethodPost, "/v1/inject", q, nil, &out)
	return out.Injected, err
}

func (c *Client) Contexts(ctx context.Context) ([]rules.AppContext, error) {
	var out []rules.AppContext
	err := c.do(ctx, http.MethodGet, "/v1/contexts", nil, nil, &out)
	return out, err
}

func (c *Client) SetContext(ctx context.Context, appKey, text string) error {
	return c.do(ctx, http.MethodPut, "/v1/contexts/"+url.PathEscape(appKey), nil, ContextRequest{Context: text}, nil)
}

func (c *Client) DeleteContext(ctx context.Context, appKey string) (bool, error) {
	var out RemoveResponse
	err := c.do(ctx, http.MethodDelete, "/v1/contexts/"+url.PathEscape(appKey), nil, nil, &out)
	return out.Removed, err
}

func (c *Client) Ignored(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/v1/ignored", nil, nil, &out)
	return out, err
}

func (c *Client) Ignore(ctx context.Context, appKey string) error {
	return c.do(ctx, http.MethodPut, "/v1/ignored/"+url.PathEscape(appKey), nil, nil, nil)
}

func (c *Client) Unignore(ctx context.Context, appKey string) (bool, error) {
	var out RemoveResponse
	err := c.do(ctx, http.MethodDelete, "/v1/ignored/"+url.PathEscape(appKey), nil, nil, &out)
	return out.Removed, err
}
