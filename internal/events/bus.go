// Package events is the in-process lifecycle notification bus.
package events

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Type names a lifecycle event.
type Type string

const (
	BlockCreated    Type = "block.created"
	BlockUpdated    Type = "block.updated"
	BlockDeleted    Type = "block.deleted"
	BlockExtracted  Type = "block.extracted"
	BlocksReordered Type = "blocks.reordered"
	BlockSummarized Type = "block.summarized"
	JobCompleted    Type = "job.completed"
	JobFailed       Type = "job.failed"
)

// Event is one notification. Data is event-specific and JSON-encodable.
type Event struct {
	Type     Type      `json:"type"`
	Document string    `json:"document,omitempty"`
	BlockID  string    `json:"block_id,omitempty"`
	Data     any       `json:"data,omitempty"`
	At       time.Time `json:"at"`
}

// Handler receives events. A returned error is logged, never propagated.
type Handler func(Event) error

type subscription struct {
	id uint64
	fn Handler
}

// Bus dispatches events synchronously to every handler subscribed to the
// event's type, in subscription order, followed by wildcard handlers.
//
// The mutex only guards the subscription lists; handlers run outside it so
// they may subscribe, unsubscribe or emit.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	byType map[Type][]subscription
	all    []subscription
	logger *slog.Logger
	onEmit func(Event)
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithObserver registers fn to see every emitted event before dispatch.
// It is used for metrics.
func WithObserver(fn func(Event)) Option {
	return func(b *Bus) { b.onEmit = fn }
}

// NewBus returns an empty Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		byType: make(map[Type][]subscription),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for t and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(t Type, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.byType[t] = append(b.byType[t], subscription{id: id, fn: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byType[t] = slices.DeleteFunc(b.byType[t], func(s subscription) bool { return s.id == id })
	}
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = slices.DeleteFunc(b.all, func(s subscription) bool { return s.id == id })
	}
}

// Emit delivers e and returns once every handler has run. Handler errors and
// panics are logged and swallowed.
func (b *Bus) Emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if b.onEmit != nil {
		b.onEmit(e)
	}
	b.mu.RLock()
	targets := make([]subscription, 0, len(b.byType[e.Type])+len(b.all))
	targets = append(targets, b.byType[e.Type]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	for _, s := range targets {
		if err := b.call(s.fn, e); err != nil {
			b.logger.Error("events: handler failed",
				slog.String("type", string(e.Type)),
				slog.String("block_id", e.BlockID),
				slog.String("error", err.Error()))
		}
	}
}

func (b *Bus) call(h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(e)
}
