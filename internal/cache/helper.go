package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found
// or when no client is configured.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if (cur or '') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// generation returns the invalidation counter for key, "" when never bumped.
func generation(ctx context.Context, key string) (string, error) {
	g, err := client.Get(ctx, GenerationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return g, err
}

// setJSONIfGeneration stores v unless key was invalidated after gen was read.
func setJSONIfGeneration(ctx context.Context, key, gen string, v any, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	n, err := setIfGeneration.Run(ctx, client,
		[]string{key, GenerationKey(key)},
		gen, b, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Aside tries Redis first; on a miss or a Redis failure it calls fetch, which
// must populate dest, then stores the result best-effort. The store is
// skipped when Invalidate ran for key while fetch was in flight, so a read
// that raced a commit cannot put the old row back.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	if client == nil {
		return fetch()
	}

	gen, genErr := generation(ctx, key)

	if err := fetch(); err != nil {
		return err
	}

	if genErr == nil {
		_, _ = setJSONIfGeneration(ctx, key, gen, dest, ttl)
	}
	return nil
}
