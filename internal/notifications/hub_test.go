package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"labbook/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func offlineNotified(h *Hub, userID uint) bool {
	h.presence.mu.RLock()
	defer h.presence.mu.RUnlock()
	return h.presence.offlineNotified[userID]
}

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg := <-c.Send:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestHub_GracePeriodSuppressesOfflineOnRapidReconnect(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	hub.presence.SetOfflineGracePeriod(40 * time.Millisecond)

	clientA, err := hub.Register(10, nil)
	require.NoError(t, err)
	hub.UnregisterClient(clientA)
	_, err = hub.Register(10, nil)
	require.NoError(t, err)

	assert.Never(t, func() bool { return offlineNotified(hub, 10) }, 20*testPollInterval, testPollInterval)
	assert.True(t, hub.IsOnline(context.Background(), 10))
}

func TestHub_LastDisconnectTriggersOfflineOnce(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	hub.presence.SetOfflineGracePeriod(30 * time.Millisecond)

	var offline, online int32
	hub.SetPresenceCallbacks(
		func(uint) { atomic.AddInt32(&online, 1) },
		func(uint) { atomic.AddInt32(&offline, 1) },
	)

	clientA, err := hub.Register(15, nil)
	require.NoError(t, err)
	clientB, err := hub.Register(15, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&online))

	hub.UnregisterClient(clientA)
	assert.Never(t, func() bool { return offlineNotified(hub, 15) }, 10*testPollInterval, testPollInterval)

	hub.UnregisterClient(clientB)
	assert.Eventually(t, func() bool { return offlineNotified(hub, 15) }, testEventuallyTimeout, testPollInterval)
	assert.False(t, hub.IsOnline(context.Background(), 15))
	assert.Equal(t, int32(1), atomic.LoadInt32(&offline))

	// A repeated unregister of a removed client changes nothing.
	hub.UnregisterClient(clientB)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(3, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(3, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(4, nil)
	assert.NoError(t, err)
}

func TestHub_DeliverRoutesToRecipients(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	alice, err := hub.Register(1, nil)
	require.NoError(t, err)
	bob, err := hub.Register(2, nil)
	require.NoError(t, err)

	bus := events.NewBus()
	stop := hub.Attach(bus)
	defer stop()

	bus.Publish(context.Background(), events.New(events.ValidationToggled, map[string]int{"post_id": 9}, 1))
	aliceMsgs := drain(alice)
	require.Len(t, aliceMsgs, 1)
	assert.Empty(t, drain(bob))

	var frame struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(aliceMsgs[0]), &frame))
	assert.Equal(t, "validation.toggled", frame.Type)
	assert.Equal(t, 9, frame.Payload["post_id"])

	bus.Publish(context.Background(), events.New(events.FeedNewPostsAvailable, nil))
	assert.Len(t, drain(alice), 1)
	assert.Len(t, drain(bob), 1)
}

func TestHub_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	c, err := hub.Register(5, nil)
	require.NoError(t, err)
	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	c.TrySend([]byte("overflow"))

	msgs := drain(c)
	assert.Len(t, msgs, sendBuffer)
	assert.NotContains(t, msgs, "overflow")
}

func TestHub_StartWiringDeliversFromRedis(t *testing.T) {
	rdb := newRedis(t)
	hub := NewHub(rdb)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	c, err := hub.Register(21, nil)
	require.NoError(t, err)
	require.NoError(t, n.PublishEvent(ctx, events.New(events.PostDeleted, nil, 21)))

	require.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
}

func TestPresence_ReaperRemovesStaleEntries(t *testing.T) {
	rdb := newRedis(t)
	hub := NewHub(rdb)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	var offlineCount int32
	hub.SetPresenceCallbacks(nil, func(uint) { atomic.AddInt32(&offlineCount, 1) })

	ctx := context.Background()
	require.NoError(t, rdb.SAdd(ctx, defaultOnlineSetKey, "44").Err())
	hub.presence.reapOnce(ctx)

	isMember, err := rdb.SIsMember(ctx, defaultOnlineSetKey, "44").Result()
	require.NoError(t, err)
	assert.False(t, isMember)
	assert.Equal(t, int32(1), atomic.LoadInt32(&offlineCount))
}

func TestPresence_TouchMarksUserOnlineAcrossInstances(t *testing.T) {
	rdb := newRedis(t)
	a := NewPresence(rdb, PresenceConfig{})
	b := NewPresence(rdb, PresenceConfig{})
	defer a.Stop()
	defer b.Stop()

	ctx := context.Background()
	a.Register(ctx, 8)
	assert.True(t, b.IsOnline(ctx, 8))
	assert.False(t, b.IsOnline(ctx, 9))
}
