package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"labbook/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOnlineSetKey   = "labbook:presence:online"
	defaultLastSeenPrefix = "labbook:presence:seen:"
	defaultLastSeenTTL    = 90 * time.Second
	defaultOfflineGrace   = 5 * time.Second
	defaultReaperInterval = 60 * time.Second
)

// PresenceConfig overrides presence defaults. Zero values keep the default.
type PresenceConfig struct {
	OnlineSetKey       string
	LastSeenKeyPrefix  string
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
}

// Presence tracks which users hold a websocket connection. Local connection
// counts are mirrored into Redis so other instances see the same state, and
// a user only goes offline after a grace period with no connection.
type Presence struct {
	rdb *redis.Client

	mu              sync.RWMutex
	local           map[uint]int
	offlineTimers   map[uint]*time.Timer
	offlineNotified map[uint]bool
	onOnline        func(userID uint)
	onOffline       func(userID uint)

	onlineSetKey   string
	lastSeenPrefix string
	lastSeenTTL    time.Duration
	offlineGrace   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence creates a tracker and starts the stale-entry reaper when Redis
// is available.
func NewPresence(rdb *redis.Client, cfg PresenceConfig) *Presence {
	p := &Presence{
		rdb:             rdb,
		local:           make(map[uint]int),
		offlineTimers:   make(map[uint]*time.Timer),
		offlineNotified: make(map[uint]bool),
		onlineSetKey:    defaultOnlineSetKey,
		lastSeenPrefix:  defaultLastSeenPrefix,
		lastSeenTTL:     defaultLastSeenTTL,
		offlineGrace:    defaultOfflineGrace,
		stopCh:          make(chan struct{}),
	}
	if cfg.OnlineSetKey != "" {
		p.onlineSetKey = cfg.OnlineSetKey
	}
	if cfg.LastSeenKeyPrefix != "" {
		p.lastSeenPrefix = cfg.LastSeenKeyPrefix
	}
	if cfg.LastSeenTTL > 0 {
		p.lastSeenTTL = cfg.LastSeenTTL
	}
	if cfg.OfflineGracePeriod > 0 {
		p.offlineGrace = cfg.OfflineGracePeriod
	}
	interval := defaultReaperInterval
	if cfg.ReaperInterval > 0 {
		interval = cfg.ReaperInterval
	}
	if rdb != nil {
		go p.reaperLoop(interval)
	}
	return p
}

// SetCallbacks installs transition hooks. Either may be nil.
func (p *Presence) SetCallbacks(onOnline, onOffline func(userID uint)) {
	p.mu.Lock()
	p.onOnline = onOnline
	p.onOffline = onOffline
	p.mu.Unlock()
}

// SetOfflineGracePeriod changes the delay before a disconnected user is
// reported offline.
func (p *Presence) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.offlineGrace = d
	p.mu.Unlock()
}

// Stop halts the reaper and pending offline timers.
func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		for uid, t := range p.offlineTimers {
			t.Stop()
			delete(p.offlineTimers, uid)
		}
		p.mu.Unlock()
	})
}

// Register counts a new connection for userID.
func (p *Presence) Register(ctx context.Context, userID uint) {
	wasOnline := p.IsOnline(ctx, userID)

	p.mu.Lock()
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
		delete(p.offlineTimers, userID)
	}
	p.local[userID]++
	p.mu.Unlock()

	p.Touch(ctx, userID)
	if !wasOnline {
		p.emit(userID, true)
	}
}

// Touch refreshes the user's last-seen marker in Redis.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, p.onlineSetKey, uid)
	pipe.SetEx(ctx, p.lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), p.lastSeenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "presence touch failed",
			slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}

// Unregister drops one connection. When it was the last, the user goes
// offline after the grace period unless they reconnect first.
func (p *Presence) Unregister(_ context.Context, userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.local[userID]; n > 1 {
		p.local[userID] = n - 1
		return
	}
	delete(p.local, userID)

	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
	}
	p.offlineTimers[userID] = time.AfterFunc(p.offlineGrace, func() {
		p.finalizeOffline(context.Background(), userID)
	})
}

// IsOnline reports a local connection or a live last-seen marker.
func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	p.mu.RLock()
	local := p.local[userID] > 0
	p.mu.RUnlock()
	if local {
		return true
	}
	if p.rdb == nil {
		return false
	}
	n, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
	return err == nil && n > 0
}

func (p *Presence) reapOnce(ctx context.Context) {
	if p.rdb == nil {
		return
	}
	members, err := p.rdb.SMembers(ctx, p.onlineSetKey).Result()
	if err != nil {
		return
	}
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		userID := uint(id)
		n, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
		if err != nil || n > 0 {
			continue
		}
		_ = p.rdb.SRem(ctx, p.onlineSetKey, raw).Err()

		p.mu.RLock()
		hasLocal := p.local[userID] > 0
		p.mu.RUnlock()
		if !hasLocal {
			p.emit(userID, false)
		}
	}
}

func (p *Presence) reaperLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(context.Background())
		}
	}
}

func (p *Presence) finalizeOffline(ctx context.Context, userID uint) {
	p.mu.Lock()
	delete(p.offlineTimers, userID)
	if p.local[userID] > 0 {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if p.rdb != nil {
		if n, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result(); err == nil && n > 0 {
			// Still fresh; the reaper emits offline once the marker expires
			// unless another instance refreshes it.
			return
		}
		_ = p.rdb.SRem(ctx, p.onlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
	}
	p.emit(userID, false)
}

func (p *Presence) emit(userID uint, online bool) {
	p.mu.Lock()
	if !online && p.offlineNotified[userID] {
		p.mu.Unlock()
		return
	}
	p.offlineNotified[userID] = !online
	cb := p.onOffline
	if online {
		cb = p.onOnline
	}
	p.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

func (p *Presence) lastSeenKey(userID uint) string {
	return p.lastSeenPrefix + strconv.FormatUint(uint64(userID), 10)
}
