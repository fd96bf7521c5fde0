package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"portal/internal/models"
	"portal/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrServerConnLimit = errors.New("server connection limit reached")
)

// Hub maps profile ids to websocket clients. Admin clients additionally sit
// in an unfiltered set that receives every event.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	admins     map[*Client]struct{}
	totalConns int
	closed     bool
	presence   *Presence
	logger     *observability.WSLogger
}

// NewHub creates a hub. The optional Redis client backs cross-instance presence.
func NewHub(redisClients ...*redis.Client) *Hub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	h := &Hub{
		conns:    make(map[string]map[*Client]struct{}),
		admins:   make(map[*Client]struct{}),
		presence: NewPresence(redisClient, PresenceConfig{}),
	}
	h.logger = observability.NewWSLogger(h.Name())
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "profile hub" }

// Presence exposes the hub's presence tracker.
func (h *Hub) Presence() *Presence { return h.presence }

// Register a connection. Returns the Client or an error if limits are exceeded.
func (h *Hub) Register(profileID string, isAdmin bool, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.closed || h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerConnLimit
	}

	m, ok := h.conns[profileID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[profileID] = m
	}
	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserConnLimit
	}

	client := NewClient(h, conn, profileID, isAdmin)
	client.OnActivity = func(id string) {
		h.presence.Touch(context.Background(), id)
	}

	m[client] = struct{}{}
	if isAdmin {
		h.admins[client] = struct{}{}
	}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	h.mu.Unlock()

	h.presence.Register(context.Background(), profileID)
	h.logger.LogConnect(context.Background(), profileID, isAdmin)
	return client, nil
}

// UnregisterClient removes a client. Safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.ProfileID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			delete(h.admins, client)
			h.totalConns--
			removed = true
			close(client.Send)
		}
		if len(m) == 0 {
			delete(h.conns, client.ProfileID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
		h.presence.Unregister(context.Background(), client.ProfileID)
	}
}

// Broadcast sends message to all connections of profileID.
func (h *Hub) Broadcast(profileID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[profileID] {
		c.TrySend(message)
	}
}

// BroadcastAdmins sends message to every admin connection.
func (h *Hub) BroadcastAdmins(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.admins {
		c.TrySend(message)
	}
}

// Deliver routes a profile event to the subject's own connections and to
// every admin connection, sending each client at most one copy.
func (h *Hub) Deliver(event models.ProfileEvent, raw []byte) {
	subject := event.SubjectID()
	if event.New != nil {
		h.syncConsoleAccess(subject, event.New.CanUseConsole())
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[subject] {
		c.TrySend(raw)
	}
	for c := range h.admins {
		if c.ProfileID == subject {
			continue
		}
		c.TrySend(raw)
	}
}

// syncConsoleAccess moves the profile's open connections in or out of the
// unfiltered admin set when its console access changed since they registered.
func (h *Hub) syncConsoleAccess(profileID string, console bool) {
	h.mu.RLock()
	changed := false
	for c := range h.conns[profileID] {
		if c.IsAdmin != console {
			changed = true
			break
		}
	}
	h.mu.RUnlock()
	if !changed {
		return
	}

	h.mu.Lock()
	for c := range h.conns[profileID] {
		c.IsAdmin = console
		if console {
			h.admins[c] = struct{}{}
		} else {
			delete(h.admins, c)
		}
	}
	h.mu.Unlock()

	h.logger.LogLifecycle(context.Background(), "console_access_changed", map[string]any{
		"profile_id": profileID,
		"console":    console,
	})
}

// ConnectionCount is the number of registered clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// IsOnline reports whether a profile holds a live connection on any instance.
func (h *Hub) IsOnline(profileID string) bool {
	return h.presence.IsOnline(context.Background(), profileID)
}

// StartWiring subscribes the hub to the notifier's profile events.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartProfileSubscriber(ctx, h.Deliver)
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*Client, 0, h.totalConns)
	for _, userConns := range h.conns {
		for c := range userConns {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	h.presence.Stop()

	for _, c := range clients {
		if c.Conn != nil {
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"),
				deadline(ctx))
			_ = c.Conn.Close()
		}
		h.UnregisterClient(c)
	}

	h.logger.LogLifecycle(ctx, "shutdown", map[string]any{"closed_connections": len(clients)})
	return nil
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(writeWait)
}
