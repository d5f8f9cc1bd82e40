// Package orchestrator runs the triage cycle: read new notification records,
// detect the focus mode, classify what arrived during focus, store it, and
// raise alerts for urgent items and for the end of a focus session.
//
// One Orchestrator owns the cursor, the focus edge state, the triage store
// and the rules behind a single mutex. The mutex is never held while reading
// the source, detecting focus, classifying or alerting.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"focustriage/internal/classifier"
	"focustriage/internal/eventbus"
	"focustriage/internal/focus"
	"focustriage/internal/rules"
	"focustriage/internal/source"
	"focustriage/internal/triage"
	logx "focustriage/pkg/logx"
)

const (
	DefaultInjectCount = 8
	DefaultMaxInject   = 30

	noNotificationsText = "No notifications."
)

type Reader interface {
	ReadNew(ctx context.Context, since int64) ([]source.Record, error)
	LatestID(ctx context.Context) (int64, error)
}

type Detector interface {
	State(ctx context.Context) focus.State
}

// Alerter delivers user-facing side effects. Urgent blocks until the alert
// is acknowledged.
type Alerter interface {
	Urgent(ctx context.Context, n triage.Notification) error
	FocusEnded(ctx context.Context, count int, summary string) error
}

type Options struct {
	Reader     Reader
	Detector   Detector
	Classifier classifier.Classifier
	Alerter    Alerter
	Rules      rules.Set
	Store      *triage.Store
	Bus        eventbus.Bus
	Log        logx.Logger
	MaxInject  int
	Now        func() time.Time
}

type Orchestrator struct {
	reader   Reader
	detector Detector
	cls      classifier.Classifier
	alerter  Alerter
	bus      eventbus.Bus
	log      logx.Logger
	now      func() time.Time

	maxInject int

	// cycleMu serializes Poll so a cursor value is read by one cycle only.
	cycleMu sync.Mutex

	mu        sync.Mutex
	cursor    int64
	wasActive bool
	store     *triage.Store
	rules     rules.Set

	cycles    uint64
	failures  uint64
	lastCycle time.Time
	lastErr   string
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Reader == nil {
		return nil, errors.New("orchestrator: reader is required")
	}
	if opts.Detector == nil {
		return nil, errors.New("orchestrator: detector is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.Unavailable{}
	}
	if opts.Store == nil {
		opts.Store = triage.NewStore(triage.DefaultMaxPerApp)
	}
	if opts.Rules.Contexts == nil {
		opts.Rules.Contexts = rules.LoadContexts("", logx.Nop())
	}
	if opts.Rules.Ignored == nil {
		opts.Rules.Ignored = rules.LoadIgnoreList("", logx.Nop())
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.Nop{}
	}
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	if opts.MaxInject <= 0 {
		opts.MaxInject = DefaultMaxInject
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		reader:    opts.Reader,
		detector:  opts.Detector,
		cls:       opts.Classifier,
		alerter:   opts.Alerter,
		bus:       opts.Bus,
		log:       opts.Log.With(logx.String("comp", "orchestrator")),
		now:       opts.Now,
		maxInject: opts.MaxInject,
		store:     opts.Store,
		rules:     opts.Rules,
	}, nil
}

// Init starts the cursor at the newest existing record so history that
// predates the process is never triaged.
func (o *Orchestrator) Init(ctx context.Context) error {
	latest, err := o.reader.LatestID(ctx)
	if err != nil {
		return fmt.Errorf("read latest notification id: %w", err)
	}
	o.mu.Lock()
	if latest > o.cursor {
		o.cursor = latest
	}
	o.mu.Unlock()
	o.log.Info("cursor initialized", logx.Int64("cursor", latest))
	return nil
}

func (o *Orchestrator) Cursor() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cursor
}

// Status is a point-in-time view for diagnostics.
type Status struct {
	Cursor    int64     `json:"cursor"`
	InFocus   bool      `json:"in_focus"`
	Stored    int       `json:"stored"`
	Counts    [4]int    `json:"counts"`
	Cycles    uint64    `json:"cycles"`
	Failures  uint64    `json:"failures"`
	LastCycle time.Time `json:"last_cycle,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Backend   string    `json:"backend"`
}

func (o *Orchestrator) Status() Status {
	backend := "unavailable"
	if b, ok := o.cls.(interface{ Backend() string }); ok && o.cls.CanUse() {
		backend = b.Backend()
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		Cursor:    o.cursor,
		InFocus:   o.wasActive,
		Stored:    o.store.Len(),
		Counts:    o.store.Counts(),
		Cycles:    o.cycles,
		Failures:  o.failures,
		LastCycle: o.lastCycle,
		LastError: o.lastErr,
		Backend:   backend,
	}
}

func (o *Orchestrator) publishCountsLocked() {
	o.bus.Publish(eventbus.Event{
		Type: eventbus.TopicTriageUpdated,
		Time: o.now(),
		Data: eventbus.Counts{Total: o.store.Len(), Tiers: o.store.Counts()},
	})
}
