// Package notifications delivers domain events to websocket clients, across
// server instances through Redis pub/sub when it is configured.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"labbook/internal/events"
	"labbook/internal/middleware"
	"labbook/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Hub maps a user id to that user's open connections.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closeOnce  sync.Once
	presence   *Presence
}

// NewHub creates a hub. The optional Redis client backs cross-instance presence.
func NewHub(redisClients ...*redis.Client) *Hub {
	var rdb *redis.Client
	if len(redisClients) > 0 {
		rdb = redisClients[0]
	}
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		presence: NewPresence(rdb, PresenceConfig{}),
	}
}

// Name identifies the hub in metrics.
func (h *Hub) Name() string { return "events" }

// Register adds a connection for userID.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserFull
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()
	observability.WebSocketConnectionsTotal.Inc()

	h.presence.Register(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes client. Removing an unknown client is a no-op.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
		h.presence.Unregister(context.Background(), client.UserID)
	}
}

// SetPresenceCallbacks installs online/offline transition hooks.
func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	h.presence.SetCallbacks(onOnline, onOffline)
}

// IsOnline reports whether the user has a live connection on any instance.
func (h *Hub) IsOnline(ctx context.Context, userID uint) bool {
	return h.presence.IsOnline(ctx, userID)
}

// Broadcast sends message to all connections of userID.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.conns[userID] {
		c.TrySend(data)
	}
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// Deliver encodes e and hands it to its recipients' connections, or to
// everyone when it names none.
func (h *Hub) Deliver(ctx context.Context, e events.Event) {
	payload, err := e.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "event encode failed", slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(string(e.Kind)).Inc()
	if len(e.Recipients) == 0 {
		h.BroadcastAll(payload)
		return
	}
	for _, uid := range uniqueRecipients(e.Recipients) {
		h.Broadcast(uid, payload)
	}
}

// Attach subscribes the hub directly to bus. Used when Redis is absent.
func (h *Hub) Attach(bus *events.Bus) func() {
	return bus.SubscribeAll(h.Deliver)
}

// StartWiring connects the Notifier to this hub: messages on a user channel
// go to that user, broadcast messages go to everyone.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		observability.WebSocketEventsTotal.WithLabelValues(eventType(payload)).Inc()
		if channel == BroadcastChannel {
			h.BroadcastAll(payload)
			return
		}
		userID, ok := ParseUserChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid event channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(userID, payload)
	})
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Shutdown closes every connection with a going-away frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.closeOnce.Do(func() {
		h.presence.Stop()

		h.mu.Lock()
		for userID, userConns := range h.conns {
			for client := range userConns {
				if client.Conn == nil {
					continue
				}
				if err := client.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")); err != nil {
					middleware.Logger.Debug("websocket close frame failed",
						slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
				}
				_ = client.Conn.Close()
			}
		}
		h.conns = make(map[uint]map[*Client]struct{})
		observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
		h.totalConns = 0
		h.mu.Unlock()
	})
	return nil
}

func eventType(payload string) string {
	var frame struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(payload), &frame); err != nil || frame.Type == "" {
		return "unknown"
	}
	return frame.Type
}
