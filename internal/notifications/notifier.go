// Package notifications provides real-time delivery of profile change events.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"portal/internal/models"
	"portal/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	profileChannelPrefix  = "profiles:user:"
	profileChannelPattern = profileChannelPrefix + "*"
)

// Handler receives decoded change events together with their wire encoding.
type Handler func(event models.ProfileEvent, raw []byte)

// Notifier publishes profile change events into Redis channels. Without a
// Redis client it delivers to in-process subscribers directly, so a single
// instance keeps working.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local []Handler
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// ProfileChannel derives the Redis channel name for a profile.
func ProfileChannel(profileID string) string {
	return profileChannelPrefix + profileID
}

// ProfileIDFromChannel extracts the profile id from a channel name.
func ProfileIDFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, profileChannelPrefix)
	return id, ok && id != ""
}

// PublishProfileEvent sends a change event to the subject's channel.
func (n *Notifier) PublishProfileEvent(ctx context.Context, event models.ProfileEvent) error {
	id := event.SubjectID()
	if id == "" {
		return fmt.Errorf("profile event without subject")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal profile event: %w", err)
	}

	ctx, span := observability.TraceRedisOperation(ctx, "PUBLISH")
	defer span.End()

	if n.rdb == nil {
		n.deliverLocal(event, payload)
		return nil
	}
	return n.rdb.Publish(ctx, ProfileChannel(id), payload).Err()
}

// StartProfileSubscriber subscribes to `profiles:user:*` and calls onEvent
// for each decodable message until ctx is cancelled.
func (n *Notifier) StartProfileSubscriber(ctx context.Context, onEvent Handler) error {
	if n.rdb == nil {
		n.mu.Lock()
		n.local = append(n.local, onEvent)
		n.mu.Unlock()
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, profileChannelPattern)
	// Wait for the subscription so events published right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", profileChannelPattern, err)
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
				n.dispatch(onEvent, msg.Channel, []byte(msg.Payload))
			}
		}
	}()

	return nil
}

func (n *Notifier) deliverLocal(event models.ProfileEvent, raw []byte) {
	n.mu.RLock()
	handlers := append([]Handler(nil), n.local...)
	n.mu.RUnlock()
	for _, h := range handlers {
		n.safeCall(h, event, raw)
	}
}

func (n *Notifier) dispatch(onEvent Handler, channel string, raw []byte) {
	if _, ok := ProfileIDFromChannel(channel); !ok {
		observability.GlobalLogger.Warn("invalid profile channel", slog.String("channel", channel))
		return
	}
	var event models.ProfileEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		observability.GlobalLogger.Warn("undecodable profile event",
			slog.String("channel", channel),
			slog.String("error", err.Error()))
		return
	}
	n.safeCall(onEvent, event, raw)
}

func (n *Notifier) safeCall(h Handler, event models.ProfileEvent, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.Error("panic in profile subscriber",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	h(event, raw)
}

// Fanout combines handlers into one.
func Fanout(handlers ...Handler) Handler {
	return func(event models.ProfileEvent, raw []byte) {
		for _, h := range handlers {
			h(event, raw)
		}
	}
}
