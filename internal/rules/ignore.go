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

// IgnoreList holds app keys whose notifications are consumed but never stored.
type IgnoreList struct {
	path string
	set  map[string]struct{}
}

func LoadIgnoreList(path string, log logx.Logger) *IgnoreList {
	l := &IgnoreList{path: path, set: map[string]struct{}{}}
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("read ignore list failed", logx.String("path", path), logx.Err(err))
		}
		return l
	}
	var keys []string
	if err := json.Unmarshal(b, &keys); err != nil {
		log.Warn("parse ignore list failed; starting empty", logx.String("path", path), logx.Err(err))
		return l
	}
	for _, k := range keys {
		l.set[k] = struct{}{}
	}
	return l
}

func (l *IgnoreList) Path() string { return l.path }

func (l *IgnoreList) Contains(appKey string) bool {
	_, ok := l.set[appKey]
	return ok
}

// List returns the ignored app keys sorted.
func (l *IgnoreList) List() []string {
	out := make([]string, 0, len(l.set))
	for k := range l.set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *IgnoreList) Add(appKey string) error {
	l.set[appKey] = struct{}{}
	return l.save()
}

// Remove drops appKey. The file is only rewritten when something was removed.
func (l *IgnoreList) Remove(appKey string) (bool, error) {
	if _, ok := l.set[appKey]; !ok {
		return false, nil
	}
	delete(l.set, appKey)
	return true, l.save()
}

func (l *IgnoreList) save() error {
	if err := writeJSON(l.path, l.List()); err != nil {
		return fmt.Errorf("save ignore list: %w", err)
	}
	return nil
}
