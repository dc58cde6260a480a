package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// emissionsReadTTL matches the payload TTL; the optimized key is a faster
// projection of the same data, not a longer-lived one.
const emissionsReadTTL = 24 * time.Hour

// RedisEmissionsReadCache caches just the current emissions number per page
// for the hot read path (footer badge rendering).
type RedisEmissionsReadCache struct {
	client *redis.Client
}

func NewRedisEmissionsReadCache(client *redis.Client) *RedisEmissionsReadCache {
	return &RedisEmissionsReadCache{client: client}
}

func emissionsKey(pageID int64) string {
	return emissionsKeyPrefix + strconv.FormatInt(pageID, 10)
}

func (c *RedisEmissionsReadCache) Get(ctx context.Context, pageID int64) (float64, bool, error) {
	raw, err := c.client.Get(ctx, emissionsKey(pageID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (c *RedisEmissionsReadCache) Set(ctx context.Context, pageID int64, emissions float64) error {
	return c.client.Set(ctx, emissionsKey(pageID), strconv.FormatFloat(emissions, 'f', -1, 64), emissionsReadTTL).Err()
}

func (c *RedisEmissionsReadCache) Delete(ctx context.Context, pageID int64) error {
	return c.client.Del(ctx, emissionsKey(pageID)).Err()
}
