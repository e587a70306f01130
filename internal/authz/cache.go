package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const epochKey = "authz:permissions_version"

// VersionedCache memoizes values under a shared generation counter (the
// "epoch"). Every cached entry is keyed by subject and epoch; invalidating
// everything is a single atomic increment of the counter. Entries from
// superseded epochs are never looked up again and age out through their TTL.
type VersionedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVersionedCache wraps the Redis client. The TTL bounds how long abandoned
// entries linger; freshness is delivered by epoch bumps, not by expiry.
func NewVersionedCache(client *redis.Client, ttl time.Duration) *VersionedCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &VersionedCache{client: client, ttl: ttl}
}

// Epoch returns the current cache generation, initialising it to 1 when the
// counter does not exist yet.
func (c *VersionedCache) Epoch(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, errors.New("authz: cache not configured")
	}
	epoch, err := c.client.Get(ctx, epochKey).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX so a bump racing the initial read is never overwritten.
		if err := c.client.SetNX(ctx, epochKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, epochKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return epoch, nil
}

// GetOrCompute returns the value cached for subject under the current epoch,
// computing and storing it on a miss. Compute failures are returned to the
// caller and never written to the cache, so an outage can not be memoized as
// an empty-but-valid result.
func (c *VersionedCache) GetOrCompute(ctx context.Context, subject string, dest any, compute func(context.Context) (any, error)) error {
	if c == nil || c.client == nil {
		return errors.New("authz: cache not configured")
	}
	if compute == nil {
		return errors.New("authz: compute func required")
	}
	epoch, err := c.Epoch(ctx)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s_v%d", subject, epoch)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := compute(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump advances the epoch, making every entry cached under previous epochs
// unreachable. The increment is atomic in Redis, so concurrent bumps only
// move the counter forward. A failed bump would leave revoked permissions
// effectively granted until TTL expiry, so one retry is attempted before the
// error is surfaced.
func (c *VersionedCache) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, errors.New("authz: cache not configured")
	}
	epoch, err := c.client.Incr(ctx, epochKey).Result()
	if err == nil {
		return epoch, nil
	}
	epoch, retryErr := c.client.Incr(ctx, epochKey).Result()
	if retryErr != nil {
		return 0, fmt.Errorf("authz: bump permissions version: %w", retryErr)
	}
	return epoch, nil
}
