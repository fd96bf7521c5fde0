package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"portal/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPresenceOnlineSetKey  = "ws:online_profiles"
	defaultPresenceLastSeenKeyNS = "ws:last_seen:"
	defaultPresenceTTL           = 90 * time.Second
	defaultOfflineGrace          = 5 * time.Second
	defaultReaperInterval        = 60 * time.Second
)

// PresenceConfig controls Redis presence and cleanup behavior.
type PresenceConfig struct {
	OnlineSetKey       string
	LastSeenKeyPrefix  string
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
}

// Presence tracks which profiles hold live connections, mirrors that in Redis
// across instances, and applies an offline grace window so rapid reconnects
// are not reported as departures.
type Presence struct {
	rdb *redis.Client

	mu              sync.RWMutex
	localConnCounts map[string]int
	offlineTimers   map[string]*time.Timer
	offline         map[string]bool

	onlineSetKey      string
	lastSeenKeyPrefix string
	lastSeenTTL       time.Duration
	offlineGrace      time.Duration
	reaperInterval    time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence creates a tracker and starts a Redis reaper when Redis is available.
func NewPresence(rdb *redis.Client, cfg PresenceConfig) *Presence {
	p := &Presence{
		rdb:               rdb,
		localConnCounts:   make(map[string]int),
		offlineTimers:     make(map[string]*time.Timer),
		offline:           make(map[string]bool),
		onlineSetKey:      defaultPresenceOnlineSetKey,
		lastSeenKeyPrefix: defaultPresenceLastSeenKeyNS,
		lastSeenTTL:       defaultPresenceTTL,
		offlineGrace:      defaultOfflineGrace,
		reaperInterval:    defaultReaperInterval,
		stopCh:            make(chan struct{}),
	}

	if cfg.OnlineSetKey != "" {
		p.onlineSetKey = cfg.OnlineSetKey
	}
	if cfg.LastSeenKeyPrefix != "" {
		p.lastSeenKeyPrefix = cfg.LastSeenKeyPrefix
	}
	if cfg.LastSeenTTL > 0 {
		p.lastSeenTTL = cfg.LastSeenTTL
	}
	if cfg.OfflineGracePeriod > 0 {
		p.offlineGrace = cfg.OfflineGracePeriod
	}
	if cfg.ReaperInterval > 0 {
		p.reaperInterval = cfg.ReaperInterval
	}

	if p.rdb != nil {
		go p.reaperLoop()
	}
	return p
}

func (p *Presence) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.offlineGrace = d
	p.mu.Unlock()
}

func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		for id, timer := range p.offlineTimers {
			timer.Stop()
			delete(p.offlineTimers, id)
		}
		p.mu.Unlock()
	})
}

func (p *Presence) Register(ctx context.Context, profileID string) {
	p.mu.Lock()
	if t, ok := p.offlineTimers[profileID]; ok {
		t.Stop()
		delete(p.offlineTimers, profileID)
	}
	p.localConnCounts[profileID]++
	p.offline[profileID] = false
	p.mu.Unlock()

	p.Touch(ctx, profileID)
}

// Touch refreshes the profile's last-seen marker.
func (p *Presence) Touch(ctx context.Context, profileID string) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.SAdd(ctx, p.onlineSetKey, profileID).Err(); err != nil {
		observability.GlobalLogger.Warn("presence SADD failed", slog.String("profile_id", profileID), slog.String("error", err.Error()))
	}
	if err := p.rdb.SetEx(ctx, p.lastSeenKey(profileID), strconv.FormatInt(time.Now().Unix(), 10), p.lastSeenTTL).Err(); err != nil {
		observability.GlobalLogger.Warn("presence SETEX failed", slog.String("profile_id", profileID), slog.String("error", err.Error()))
	}
}

func (p *Presence) Unregister(_ context.Context, profileID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.localConnCounts[profileID]; ok {
		n--
		if n > 0 {
			p.localConnCounts[profileID] = n
			return
		}
		delete(p.localConnCounts, profileID)
	}

	if t, ok := p.offlineTimers[profileID]; ok {
		t.Stop()
	}
	p.offlineTimers[profileID] = time.AfterFunc(p.offlineGrace, func() {
		p.finalizeOffline(context.Background(), profileID)
	})
}

func (p *Presence) IsOnline(ctx context.Context, profileID string) bool {
	p.mu.RLock()
	local := p.localConnCounts[profileID] > 0
	p.mu.RUnlock()
	if local {
		return true
	}
	if p.rdb == nil {
		return false
	}
	exists, err := p.rdb.Exists(ctx, p.lastSeenKey(profileID)).Result()
	return err == nil && exists > 0
}

// OnlineCount counts live profiles across instances, falling back to local
// connections when Redis is unavailable.
func (p *Presence) OnlineCount(ctx context.Context) int {
	p.mu.RLock()
	local := make(map[string]struct{}, len(p.localConnCounts))
	for id, n := range p.localConnCounts {
		if n > 0 {
			local[id] = struct{}{}
		}
	}
	p.mu.RUnlock()

	if p.rdb == nil {
		return len(local)
	}
	members, err := p.rdb.SMembers(ctx, p.onlineSetKey).Result()
	if err != nil {
		return len(local)
	}
	for _, id := range members {
		if exists, err := p.rdb.Exists(ctx, p.lastSeenKey(id)).Result(); err == nil && exists > 0 {
			local[id] = struct{}{}
		}
	}
	return len(local)
}

// reapOnce performs one cleanup pass over the Redis online set.
func (p *Presence) reapOnce(ctx context.Context) {
	if p.rdb == nil {
		return
	}
	members, err := p.rdb.SMembers(ctx, p.onlineSetKey).Result()
	if err != nil {
		return
	}
	for _, id := range members {
		exists, err := p.rdb.Exists(ctx, p.lastSeenKey(id)).Result()
		if err != nil || exists > 0 {
			continue
		}
		_ = p.rdb.SRem(ctx, p.onlineSetKey, id).Err()
	}
}

func (p *Presence) reaperLoop() {
	ticker := time.NewTicker(p.reaperInterval)
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

func (p *Presence) finalizeOffline(ctx context.Context, profileID string) {
	p.mu.Lock()
	delete(p.offlineTimers, profileID)
	if p.localConnCounts[profileID] > 0 {
		p.mu.Unlock()
		return
	}
	p.offline[profileID] = true
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	// Other instances holding connections re-add the profile on their next touch.
	_ = p.rdb.Del(ctx, p.lastSeenKey(profileID)).Err()
	_ = p.rdb.SRem(ctx, p.onlineSetKey, profileID).Err()
}

func (p *Presence) wentOffline(profileID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offline[profileID]
}

func (p *Presence) lastSeenKey(profileID string) string {
	return p.lastSeenKeyPrefix + profileID
}
