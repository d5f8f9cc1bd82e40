package alert

import (
	"context"
	"time"
)

// Level orders alerts for remote formatting.
type Level int

const (
	LevelInfo Level = iota
	LevelUrgent
)

// Alert is one outbound user-facing message.
type Alert struct {
	Title string
	Body  string
	Level Level
	// Modal asks sinks that can do so to render a dialog instead of a banner.
	Modal bool
}

// Sink delivers alerts to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// Prompter is implemented by sinks that can show a dialog and wait for it
// to be dismissed.
type Prompter interface {
	Prompt(ctx context.Context, a Alert) error
}

// Config controls the async alert pipeline.
type Config struct {
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
	// SendTimeout bounds one non-modal Send call.
	SendTimeout time.Duration
}

// Event is emitted on the event bus for alert lifecycle events.
type Event struct {
	Sink  string    `json:"sink"`
	Key   string    `json:"key"`
	Title string    `json:"title"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}
