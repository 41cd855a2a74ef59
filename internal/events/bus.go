// Package events is the in-process publish/subscribe bus that domain
// services announce changes on. Listeners run independently: a panic in one
// never reaches the publisher or the other listeners.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"labbook/internal/middleware"
	"labbook/internal/observability"
)

// Kind names an event.
type Kind string

const (
	PostCreated           Kind = "post.created"
	PostUpdated           Kind = "post.updated"
	PostDeleted           Kind = "post.deleted"
	InsightAdded          Kind = "insight.added"
	InsightDeleted        Kind = "insight.deleted"
	ValidationToggled     Kind = "validation.toggled"
	RelationChanged       Kind = "relation.changed"
	FeedNewPostsAvailable Kind = "feed.new_posts_available"
	PresenceChanged       Kind = "presence.changed"
)

// Event is one broadcast. Recipients limits realtime delivery to those users;
// an empty list means everyone.
type Event struct {
	Kind       Kind      `json:"type"`
	Payload    any       `json:"payload,omitempty"`
	Recipients []uint    `json:"-"`
	At         time.Time `json:"ts"`
}

// New builds an event stamped with the current time.
func New(kind Kind, payload any, recipients ...uint) Event {
	return Event{Kind: kind, Payload: payload, Recipients: recipients, At: time.Now().UTC()}
}

// Encode renders the event as the JSON frame sent to websocket clients.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	return string(b), nil
}

// Handler receives events.
type Handler func(ctx context.Context, e Event)

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type subscription struct {
	id uint64
	fn Handler
}

// Bus fans events out to subscribers synchronously in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	byKind map[Kind][]subscription
	all    []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{byKind: make(map[Kind][]subscription)}
}

// Subscribe registers fn for one kind and returns a function that removes it.
func (b *Bus) Subscribe(kind Kind, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.byKind[kind] = append(b.byKind[kind], subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byKind[kind] = without(b.byKind[kind], id)
	}
}

// SubscribeAll registers fn for every kind.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = without(b.all, id)
	}
}

// Publish delivers e to every matching listener. It never fails; listener
// panics are logged and swallowed.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	observability.EventsPublished.WithLabelValues(string(e.Kind)).Inc()
	b.mu.RLock()
	targets := make([]subscription, 0, len(b.byKind[e.Kind])+len(b.all))
	targets = append(targets, b.byKind[e.Kind]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	for _, s := range targets {
		deliver(ctx, s.fn, e)
	}
}

func deliver(ctx context.Context, fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.ErrorContext(ctx, "event listener panicked",
				slog.String("kind", string(e.Kind)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn(ctx, e)
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) {}
