// Package rules persists per-app classification context and the ignore list.
//
// Files under the rules directory:
//   - app_prompts.json  ({"<app>": {"context": "..."}}; a flat {"<app>": "..."} is accepted on load)
//   - ignored_apps.json (sorted JSON array)
//
// Both files are rewritten wholesale on every mutation. A failed write still
// leaves the in-memory state updated; the error is returned to the caller.
// Values are not safe for concurrent use.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logx "focustriage/pkg/logx"
)

const (
	ContextsFile = "app_prompts.json"
	IgnoredFile  = "ignored_apps.json"
)

// DefaultDir returns ~/.config/focustriage.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "focustriage"), nil
}

// ResolveDir returns configured (with ~ expanded) or DefaultDir.
func ResolveDir(configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return DefaultDir()
	}
	if configured == "~" || strings.HasPrefix(configured, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configured = filepath.Join(home, strings.TrimPrefix(configured, "~"))
	}
	return configured, nil
}

// Set bundles both rule files of one directory.
type Set struct {
	Contexts *Contexts
	Ignored  *IgnoreList
}

// Load reads both files from dir. Missing or unreadable files yield empty rules.
func Load(dir string, log logx.Logger) Set {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "rules"))
	return Set{
		Contexts: LoadContexts(filepath.Join(dir, ContextsFile), log),
		Ignored:  LoadIgnoreList(filepath.Join(dir, IgnoredFile), log),
	}
}

// writeJSON writes v as indented JSON via tmp file + rename.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
