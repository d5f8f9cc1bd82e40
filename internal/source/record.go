// Package source reads the notification center's SQLite log.
//
// The log is append-only and owned by the OS; it is always opened read-only.
// Two table layouts are known (see schemas); the first one that answers a
// probe query is memoized for the reader's lifetime.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record is one notification as read from the log. Immutable once read.
type Record struct {
	ID         int64     `json:"id"`
	AppKey     string    `json:"app_key"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Subtitle   string    `json:"subtitle"`
	ObservedAt time.Time `json:"observed_at"`
}

var (
	// ErrSchemaUnknown means none of the known table layouts answered.
	ErrSchemaUnknown = errors.New("could not determine notification DB schema")
	// ErrNotFound means the database file does not exist.
	ErrNotFound = errors.New("notification DB not found")
)

// DefaultPath returns the per-user notification center database.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, "Library", "Group Containers", "group.com.apple.usernoted", "db2", "db"), nil
}
