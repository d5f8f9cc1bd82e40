// Package eventbus is an in-memory, non-blocking fanout of small events
// between the triage loop and its observers.
package eventbus

import (
	"sync"
	"time"
)

// Topics published by the triage loop and the control surface.
const (
	TopicTriageUpdated = "triage.updated"
	TopicFocusEnded    = "focus.ended"
	TopicCycleFailed   = "cycle.failed"
	TopicAlertSent     = "alert.sent"
	TopicAlertFailed   = "alert.failed"
	TopicAlertDropped  = "alert.dropped"
)

// Event is a lightweight signal. Data should be small and JSON-serializable.
//
// Contract:
//   - Publish never blocks.
//   - Slow subscribers drop events.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Counts is the payload of TopicTriageUpdated: per-tier totals, Critical first.
type Counts struct {
	Total int    `json:"total"`
	Tiers [4]int `json:"tiers"`
}

// FocusEnded is the payload of TopicFocusEnded.
type FocusEnded struct {
	Count   int    `json:"count"`
	Summary string `json:"summary"`
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Sends happen under the read lock; unsubscribe closes under the write
	// lock, so a send never hits a closed channel.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}

func (Nop) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}
