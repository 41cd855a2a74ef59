package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"labbook/internal/events"
	"labbook/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix     = "labbook:events:"
	userChannelPrefix = channelPrefix + "user:"
	// BroadcastChannel carries events addressed to every connected user.
	BroadcastChannel = channelPrefix + "broadcast"
)

// Notifier publishes encoded events into Redis channels so every server
// instance can deliver them to its own websocket clients.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// PublishEvent encodes e once and routes it to each recipient, or to the
// broadcast channel when it has none.
func (n *Notifier) PublishEvent(ctx context.Context, e events.Event) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := e.Encode()
	if err != nil {
		return err
	}
	if len(e.Recipients) == 0 {
		return n.PublishBroadcast(ctx, payload)
	}
	for _, uid := range uniqueRecipients(e.Recipients) {
		if err := n.PublishUser(ctx, uid, payload); err != nil {
			return err
		}
	}
	return nil
}

// Forward subscribes the notifier to every event on bus and returns the
// unsubscribe function.
func (n *Notifier) Forward(bus *events.Bus) func() {
	return bus.SubscribeAll(func(ctx context.Context, e events.Event) {
		if err := n.PublishEvent(ctx, e); err != nil {
			middleware.Logger.WarnContext(ctx, "event publish to redis failed",
				slog.String("kind", string(e.Kind)),
				slog.String("error", err.Error()),
			)
		}
	})
}

// StartPatternSubscriber subscribes to the user and broadcast channels and
// calls onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", BroadcastChannel)
	// Wait for the subscription confirmation so publishes issued right after
	// this call are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel built by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func uniqueRecipients(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
