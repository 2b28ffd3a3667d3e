// Package eventbus decouples the wallet connection flow from the effects that
// follow it. Handlers subscribe by event type, and emitting requires an active
// session context.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultHistoryCapacity is the number of emitted events retained by History
const DefaultHistoryCapacity = 256

// ErrNoContext is returned by Emit when no session context is set
var ErrNoContext = errors.New("eventbus: no session context set")

// SessionContext identifies who the emitted events are about
type SessionContext struct {
	UserID  string
	Address string
	ChainID uint64
}

// Event is a single emission as seen by handlers and History
type Event struct {
	Type      string
	Data      any
	Session   SessionContext
	EmittedAt time.Time
}

// Handler reacts to an event and may return a result to the emitter
type Handler func(ctx context.Context, event Event) (any, error)

// Bus dispatches events to registered handlers
type Bus struct {
	mu       sync.RWMutex
	session  *SessionContext
	handlers map[string][]*registration
	history  *ring
	now      func() time.Time
}

type registration struct {
	handler Handler
}

// Option configures a Bus
type Option func(*Bus)

// WithHistoryCapacity bounds the number of events kept in history
func WithHistoryCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.history = newRing(n)
		}
	}
}

// WithClock replaces the clock used to stamp events
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// New creates an empty bus with no session context
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]*registration),
		history:  newRing(DefaultHistoryCapacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetContext replaces the active session context; nil clears it
func (b *Bus) SetContext(sc *SessionContext) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sc == nil {
		b.session = nil
		return
	}
	cp := *sc
	b.session = &cp
}

// Context returns a copy of the active session context, or nil
func (b *Bus) Context() *SessionContext {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.session == nil {
		return nil
	}
	cp := *b.session
	return &cp
}

// Register subscribes h to eventType. The returned func removes the
// subscription.
func (b *Bus) Register(eventType string, h Handler) func() {
	reg := &registration{handler: h}

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], reg)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			regs := b.handlers[eventType]
			for i, r := range regs {
				if r == reg {
					b.handlers[eventType] = append(regs[:i:i], regs[i+1:]...)
					break
				}
			}
			if len(b.handlers[eventType]) == 0 {
				delete(b.handlers, eventType)
			}
		})
	}
}

// Emit runs every handler registered for eventType concurrently and returns
// their results in registration order. The first handler error is returned
// after all handlers have finished.
func (b *Bus) Emit(ctx context.Context, eventType string, data any) ([]any, error) {
	b.mu.RLock()
	if b.session == nil {
		b.mu.RUnlock()
		return nil, ErrNoContext
	}
	event := Event{
		Type:      eventType,
		Data:      data,
		Session:   *b.session,
		EmittedAt: b.now(),
	}
	regs := make([]*registration, len(b.handlers[eventType]))
	copy(regs, b.handlers[eventType])
	b.mu.RUnlock()

	b.history.push(event)

	results := make([]any, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	for i, reg := range regs {
		g.Go(func() error {
			res, err := reg.handler(gctx, event)
			if err != nil {
				return fmt.Errorf("handler %d for %q: %w", i, eventType, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	return results, nil
}

// History returns retained events, oldest first
func (b *Bus) History() []Event {
	return b.history.snapshot()
}

// HandlerCount returns the number of handlers registered for eventType
func (b *Bus) HandlerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
