// Package optimistic holds a value that can be changed ahead of a store
// round trip and put back if that round trip fails.
package optimistic

import (
	"context"
	"sync"
)

// Tentative keeps the last committed value next to the value currently
// shown to readers.
type Tentative[T any] struct {
	mu        sync.Mutex
	committed T
	current   T
	pending   bool
}

// New starts with v committed.
func New[T any](v T) *Tentative[T] {
	return &Tentative[T]{committed: v, current: v}
}

// Value is what readers should see right now.
func (t *Tentative[T]) Value() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Committed is the last value known to be persisted.
func (t *Tentative[T]) Committed() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// Pending reports whether a tentative change is outstanding.
func (t *Tentative[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Apply changes the shown value and returns it. Successive Apply calls stack
// on the current value; the committed snapshot stays put until Commit.
func (t *Tentative[T]) Apply(change func(T) T) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = change(t.current)
	t.pending = true
	return t.current
}

// Commit makes the shown value the committed one.
func (t *Tentative[T]) Commit() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = t.current
	t.pending = false
	return t.committed
}

// Rollback discards tentative changes and returns the committed value.
func (t *Tentative[T]) Rollback() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = t.committed
	t.pending = false
	return t.current
}

// Run applies change on top of committed, shows the result, then persists.
// When persist fails the committed value is shown again and persist's error
// is returned. Errors from show are ignored: it only feeds a cache.
func Run[T any](
	ctx context.Context,
	committed T,
	change func(T) T,
	show func(context.Context, T) error,
	persist func(context.Context) error,
) (T, error) {
	t := New(committed)
	_ = show(ctx, t.Apply(change))

	if err := persist(ctx); err != nil {
		_ = show(ctx, t.Rollback())
		return t.Value(), err
	}
	return t.Commit(), nil
}
