package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ProfileKeyPrefix   = "profile:%s"
	UsageKey           = "admin:usage"
	WSTicketKeyPrefix  = "ws_ticket:%s"
	BlacklistKeyPrefix = "blacklist:%s"
	generationSuffix   = ":gen"
)

const (
	ProfileTTL  = 5 * time.Minute
	UsageTTL    = 30 * time.Second
	WSTicketTTL = 30 * time.Second

	// generationTTL outlives any cached value so a bump is still visible to
	// readers that started before it.
	generationTTL = 2 * ProfileTTL
)

func ProfileKey(id string) string {
	return fmt.Sprintf(ProfileKeyPrefix, id)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

// GenerationKey is the counter bumped each time key is invalidated.
func GenerationKey(key string) string {
	return key + generationSuffix
}

// Invalidate deletes keys and bumps their generations, which cancels any
// cache-aside write that read the store before the invalidation.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, GenerationKey(key))
			pipe.Expire(ctx, GenerationKey(key), generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
}

// InvalidateProfile drops the cached profile row and the usage counters it feeds.
func InvalidateProfile(ctx context.Context, id string) {
	Invalidate(ctx, ProfileKey(id), UsageKey)
}
