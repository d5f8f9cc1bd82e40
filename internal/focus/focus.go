// Package focus reports whether a Focus (Do Not Disturb) mode is active by
// reading the OS assertions file.
package focus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"focustriage/pkg/logx"
)

type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

const sharedAssertionsPath = "/Users/Shared/.FocusConfiguration/Assertions.json"

// ResolvePath returns configured when non-empty, else the per-user assertions
// file if it exists, else the shared fallback location.
func ResolvePath(configured string) string {
	if p := strings.TrimSpace(configured); p != "" {
		return p
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, "Library", "DoNotDisturb", "DB", "Assertions.json")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return sharedAssertionsPath
}

type Detector struct {
	path string
	log  logx.Logger
}

func NewDetector(path string, log logx.Logger) *Detector {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Detector{path: path, log: log.With(logx.String("comp", "focus"))}
}

func (d *Detector) Path() string { return d.path }

// State never fails: unreadable or malformed input reports Inactive.
func (d *Detector) State(ctx context.Context) State {
	if ctx.Err() != nil {
		return Inactive
	}
	b, err := os.ReadFile(d.path)
	if err != nil {
		d.log.Warn("cannot read focus assertions", logx.String("path", d.path), logx.Err(err))
		return Inactive
	}
	active, err := parseAssertions(b)
	if err != nil {
		d.log.Warn("cannot parse focus assertions", logx.String("path", d.path), logx.Err(err))
		return Inactive
	}
	if active {
		return Active
	}
	return Inactive
}

// parseAssertions reports whether any element of "data" carries a
// storeAssertionRecords value other than null or false.
func parseAssertions(b []byte) (bool, error) {
	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return false, fmt.Errorf("decode assertions: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(doc.Data, &items); err != nil {
		// "data" missing or not an array.
		return false, nil
	}
	for _, it := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(it, &obj); err != nil {
			continue
		}
		raw, ok := obj["storeAssertionRecords"]
		if !ok {
			continue
		}
		switch strings.TrimSpace(string(raw)) {
		case "null", "false":
			continue
		}
		return true, nil
	}
	return false, nil
}

var errNotObject = errors.New("assertions document is not an object")

// Check reads the file once and reports a read/parse error instead of
// swallowing it. Used by diagnostics.
func (d *Detector) Check() (State, error) {
	b, err := os.ReadFile(d.path)
	if err != nil {
		return Inactive, err
	}
	if t := strings.TrimSpace(string(b)); !strings.HasPrefix(t, "{") {
		return Inactive, errNotObject
	}
	active, err := parseAssertions(b)
	if err != nil {
		return Inactive, err
	}
	if active {
		return Active, nil
	}
	return Inactive, nil
}
