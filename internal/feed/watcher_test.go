package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type latestSeq struct {
	mu     sync.Mutex
	values []time.Time
	err    error
}

func (l *latestSeq) next(context.Context) (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return time.Time{}, l.err
	}
	v := l.values[0]
	if len(l.values) > 1 {
		l.values = l.values[1:]
	}
	return v, nil
}

func TestWatcherFirstPollSetsBaseline(t *testing.T) {
	src := &latestSeq{values: []time.Time{base, base, base.Add(time.Minute)}}
	var notified []time.Time
	w := NewWatcher(src.next, time.Minute, func(_ context.Context, newest time.Time) {
		notified = append(notified, newest)
	})

	sent, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, base, w.LastSeen())

	sent, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []time.Time{base.Add(time.Minute)}, notified)
}

func TestWatcherMarkSeenSuppressesNotification(t *testing.T) {
	src := &latestSeq{values: []time.Time{base, base.Add(time.Hour)}}
	calls := 0
	w := NewWatcher(src.next, 0, func(context.Context, time.Time) { calls++ })
	assert.Equal(t, DefaultPollInterval, w.interval)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)
	w.MarkSeen(base.Add(time.Hour))

	sent, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, calls)
}

func TestWatcherPollError(t *testing.T) {
	boom := errors.New("store down")
	w := NewWatcher((&latestSeq{err: boom}).next, time.Minute, nil)

	sent, err := w.Poll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, sent)
}

func TestWatcherDiscardsSupersededPoll(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	slow := true
	var mu sync.Mutex

	latest := func(ctx context.Context) (time.Time, error) {
		mu.Lock()
		isSlow := slow
		slow = false
		mu.Unlock()
		if isSlow {
			once.Do(func() { close(started) })
			<-release
			return base.Add(time.Hour), nil
		}
		return base, nil
	}
	w := NewWatcher(latest, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sent, err := w.Poll(context.Background())
		assert.NoError(t, err)
		assert.False(t, sent)
	}()
	<-started

	_, err := w.Poll(context.Background())
	require.NoError(t, err)
	close(release)
	<-done

	assert.Equal(t, base, w.LastSeen())
}

func TestWatcherAnnouncesFirstPostIntoEmptyStore(t *testing.T) {
	src := &latestSeq{values: []time.Time{{}, {}, base}}
	var notified []time.Time
	w := NewWatcher(src.next, time.Minute, func(_ context.Context, newest time.Time) {
		notified = append(notified, newest)
	})

	for i := 0; i < 2; i++ {
		sent, err := w.Poll(context.Background())
		require.NoError(t, err)
		assert.False(t, sent)
	}
	assert.True(t, w.LastSeen().IsZero())

	sent, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []time.Time{base}, notified)
}

func TestWatcherMarkSeenDiscardsInFlightPoll(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	first := true
	var mu sync.Mutex

	latest := func(ctx context.Context) (time.Time, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			return base, nil
		}
		close(started)
		<-release
		return base.Add(time.Hour), nil
	}
	calls := 0
	w := NewWatcher(latest, time.Minute, func(context.Context, time.Time) { calls++ })

	_, err := w.Poll(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sent, err := w.Poll(context.Background())
		assert.NoError(t, err)
		assert.False(t, sent)
	}()
	<-started
	w.MarkSeen(base.Add(time.Minute))
	close(release)
	<-done

	assert.Zero(t, calls)
	assert.Equal(t, base.Add(time.Minute), w.LastSeen())
}

func TestWatcherStartStopsOnCancel(t *testing.T) {
	var mu sync.Mutex
	n := 0
	latest := func(context.Context) (time.Time, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second), nil
	}
	notified := make(chan time.Time, 8)
	w := NewWatcher(latest, 10*time.Millisecond, func(_ context.Context, newest time.Time) {
		select {
		case notified <- newest:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	select {
	case got := <-notified:
		assert.True(t, got.After(base))
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never notified")
	}
	cancel()
}
