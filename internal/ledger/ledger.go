// Package ledger records token usage for every model generation and derives
// per-conversation, per-model, daily and overall analytics from the raw log.
//
// The event log is the only source of truth. Views are recomputed on every
// query and never stored. The log is written through to a durable key-value
// store on each Record; storage failures are logged and never surface to the
// caller, the in-memory log stays authoritative for the running process.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultKey is the store key holding the persisted log.
const DefaultKey = "tokenledger"

// storeTimeout bounds each durable store call.
const storeTimeout = 5 * time.Second

// Store is the durable key-value collaborator.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Observer is notified after ledger mutations. Callbacks run outside the
// ledger lock and must not block.
type Observer interface {
	EventRecorded(ev UsageEvent, logLen int)
	LedgerCleared()
	PersistFailed(op string, err error)
}

// Ledger is the append-only usage log. It is safe for concurrent use.
type Ledger struct {
	mu     sync.RWMutex
	events []UsageEvent

	store     Store
	key       string
	clock     Clock
	loc       *time.Location
	log       *zap.Logger
	observers []Observer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLogger sets the logger used for load and persistence warnings.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithKey overrides the store key.
func WithKey(key string) Option {
	return func(l *Ledger) { l.key = key }
}

// WithLocation sets the calendar used to bucket events into days.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// WithObserver registers an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

// New creates a ledger backed by store and loads any persisted history.
// Missing or unreadable history yields an empty ledger.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		key:   DefaultKey,
		clock: systemClock{},
		loc:   time.Local,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("ledger")
	events, err := l.load()
	if err != nil {
		l.log.Warn("load usage log failed, starting empty", zap.String("key", l.key), zap.Error(err))
	}
	l.events = events
	return l
}

// load reads the persisted log, re-deriving totals. A missing key is an
// empty log, not an error.
func (l *Ledger) load() ([]UsageEvent, error) {
	if l.store == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("read usage log: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var doc persistedLog
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("corrupt usage log: %w", err)
	}

	events := make([]UsageEvent, 0, len(doc.TokenUsageLog))
	for _, ev := range doc.TokenUsageLog {
		events = append(events, newEvent(ev.ConversationID, ev.ModelID, ev.InputTokens, ev.OutputTokens, ev.Timestamp))
	}
	l.log.Debug("usage log loaded", zap.Int("events", len(events)))
	return events, nil
}

// Reload replaces the in-memory log with what the store currently holds.
// Another process sharing the store may have appended since construction.
// When the store cannot be read or holds corrupt data the current log is
// kept, so a later Record never overwrites history it failed to see.
func (l *Ledger) Reload() int {
	events, err := l.load()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.log.Warn("reload usage log failed, keeping current log",
			zap.String("key", l.key), zap.Int("events", len(l.events)), zap.Error(err))
		return len(l.events)
	}
	l.events = events
	return len(events)
}

// Record appends one usage event stamped with the current time and writes
// the log through to the store. Negative token counts are clamped to zero.
func (l *Ledger) Record(conversationID, modelID string, inputTokens, outputTokens int64) UsageEvent {
	ev := newEvent(conversationID, modelID, inputTokens, outputTokens, l.clock.Now())

	l.mu.Lock()
	l.events = append(l.events, ev)
	n := len(l.events)
	err := l.persistLocked()
	l.mu.Unlock()

	if err != nil {
		l.log.Warn("persist usage log failed", zap.String("conversation", conversationID), zap.Error(err))
		l.notifyPersistFailed("set", err)
	}
	for _, o := range l.observers {
		o.EventRecorded(ev, n)
	}
	return ev
}

// persistLocked writes the full log. Must be called with l.mu held.
// TODO: buffer writes behind a flush interval once logs reach tens of
// thousands of events; every Record currently rewrites the whole document.
func (l *Ledger) persistLocked() error {
	if l.store == nil {
		return nil
	}
	data, err := json.Marshal(persistedLog{TokenUsageLog: l.events})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return l.store.Set(ctx, l.key, string(data))
}

// Clear drops every event from memory and storage. The in-memory clear
// always succeeds even if the store delete fails.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.events = nil
	var err error
	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		err = l.store.Delete(ctx, l.key)
		cancel()
	}
	l.mu.Unlock()

	if err != nil {
		l.log.Warn("delete persisted usage log failed", zap.String("key", l.key), zap.Error(err))
		l.notifyPersistFailed("delete", err)
	}
	l.log.Info("usage log cleared")
	for _, o := range l.observers {
		o.LedgerCleared()
	}
}

// Events returns a copy of the raw log in insertion order.
func (l *Ledger) Events() []UsageEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// Len returns the number of events in the log.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

func (l *Ledger) snapshotLocked() []UsageEvent {
	out := make([]UsageEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Ledger) notifyPersistFailed(op string, err error) {
	for _, o := range l.observers {
		o.PersistFailed(op, err)
	}
}

// newEvent builds an event with clamped counts and a derived total.
func newEvent(conversationID, modelID string, in, out int64, ts time.Time) UsageEvent {
	if in < 0 {
		in = 0
	}
	if out < 0 {
		out = 0
	}
	return UsageEvent{
		ConversationID: conversationID,
		ModelID:        modelID,
		InputTokens:    in,
		OutputTokens:   out,
		TotalTokens:    in + out,
		Timestamp:      ts,
	}
}
