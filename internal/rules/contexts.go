package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	logx "focustriage/pkg/logx"
)

type contextEntry struct {
	Context string `json:"context"`
}

// AppContext is one app's extra classification context.
type AppContext struct {
	AppKey  string `json:"app_key"`
	Context string `json:"context"`
}

// Contexts maps app keys to free-form text appended to the classification prompt.
type Contexts struct {
	path string
	m    map[string]string
}

func LoadContexts(path string, log logx.Logger) *Contexts {
	c := &Contexts{path: path, m: map[string]string{}}
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("read contexts failed", logx.String("path", path), logx.Err(err))
		}
		return c
	}

	var nested map[string]contextEntry
	if err := json.Unmarshal(b, &nested); err == nil {
		for k, v := range nested {
			c.m[k] = v.Context
		}
		return c
	}
	var flat map[string]string
	if err := json.Unmarshal(b, &flat); err == nil {
		for k, v := range flat {
			c.m[k] = v
		}
		return c
	}
	log.Warn("parse contexts failed; starting empty", logx.String("path", path))
	return c
}

func (c *Contexts) Path() string { return c.path }

// Get returns the context for appKey, or "".
func (c *Contexts) Get(appKey string) string { return c.m[appKey] }

// List returns all contexts sorted by app key.
func (c *Contexts) List() []AppContext {
	out := make([]AppContext, 0, len(c.m))
	for k, v := range c.m {
		out = append(out, AppContext{AppKey: k, Context: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppKey < out[j].AppKey })
	return out
}

func (c *Contexts) Set(appKey, context string) error {
	c.m[appKey] = context
	return c.save()
}

// Delete removes appKey. The file is only rewritten when something was removed.
func (c *Contexts) Delete(appKey string) (bool, error) {
	if _, ok := c.m[appKey]; !ok {
		return false, nil
	}
	delete(c.m, appKey)
	return true, c.save()
}

func (c *Contexts) save() error {
	out := make(map[string]contextEntry, len(c.m))
	for k, v := range c.m {
		out[k] = contextEntry{Context: v}
	}
	if err := writeJSON(c.path, out); err != nil {
		return fmt.Errorf("save contexts: %w", err)
	}
	return nil
}
