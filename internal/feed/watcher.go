package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"labbook/internal/middleware"
)

// DefaultPollInterval is used when the watcher is built with a zero interval.
const DefaultPollInterval = 30 * time.Second

// LatestFunc reports the created_at of the newest post in the store.
type LatestFunc func(ctx context.Context) (time.Time, error)

// NotifyFunc is called once per advance of the newest post timestamp.
type NotifyFunc func(ctx context.Context, newest time.Time)

// Watcher polls for posts newer than the last one it has seen. It never
// merges anything into a feed; it only announces that a refresh would show
// something new.
type Watcher struct {
	latest   LatestFunc
	notify   NotifyFunc
	interval time.Duration

	mu         sync.Mutex
	lastSeen   time.Time
	baselined  bool
	generation uint64
}

// NewWatcher creates a watcher. A zero interval falls back to
// DefaultPollInterval.
func NewWatcher(latest LatestFunc, interval time.Duration, notify NotifyFunc) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{latest: latest, notify: notify, interval: interval}
}

// LastSeen returns the newest timestamp observed so far.
func (w *Watcher) LastSeen() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// MarkSeen moves the baseline forward without notifying, e.g. after the
// viewer refreshed. Polls already in flight are discarded.
func (w *Watcher) MarkSeen(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.baselined = true
	if t.After(w.lastSeen) {
		w.lastSeen = t
	}
}

// Poll runs one check. It reports whether a notification was sent. The
// first successful poll only records the baseline, even when the store is
// empty. A poll whose result arrives after a newer poll or a MarkSeen is
// discarded.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	w.mu.Lock()
	w.generation++
	gen := w.generation
	w.mu.Unlock()

	newest, err := w.latest(ctx)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return false, nil
	}
	first := !w.baselined
	w.baselined = true
	if !newest.After(w.lastSeen) {
		w.mu.Unlock()
		return false, nil
	}
	w.lastSeen = newest
	w.mu.Unlock()

	if first || w.notify == nil {
		return false, nil
	}
	w.notify(ctx, newest)
	return true, nil
}

// Start polls immediately and then on every tick until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.pollAndLog(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.pollAndLog(ctx)
			}
		}
	}()
}

func (w *Watcher) pollAndLog(ctx context.Context) {
	if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
		middleware.Logger.WarnContext(ctx, "feed watcher poll failed", slog.String("error", err.Error()))
	}
}
