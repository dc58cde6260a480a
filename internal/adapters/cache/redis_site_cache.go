package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

const (
	statsKey          = "carbonfooter:stats"
	heaviestKeyPrefix = "carbonfooter:heaviest:"
	untestedKey       = "carbonfooter:untested"
)

// HeaviestLimits are the page sizes the heaviest listing is cached at.
var HeaviestLimits = []int{10, 20, 50}

// RedisSiteCache holds the site-wide derived views: aggregate stats and the
// dashboard listings. All keys are enumerable so ClearAll stays exact.
type RedisSiteCache struct {
	client *redis.Client
}

func NewRedisSiteCache(client *redis.Client) *RedisSiteCache {
	return &RedisSiteCache{client: client}
}

func heaviestKey(limit int) string {
	return heaviestKeyPrefix + strconv.Itoa(limit)
}

func (c *RedisSiteCache) Stats(ctx context.Context) (*domain.SiteStats, error) {
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out domain.SiteStats
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RedisSiteCache) SetStats(ctx context.Context, stats domain.SiteStats, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, raw, ttl).Err()
}

func (c *RedisSiteCache) Heaviest(ctx context.Context, limit int) ([]domain.PageWeight, bool, error) {
	raw, err := c.client.Get(ctx, heaviestKey(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out []domain.PageWeight
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *RedisSiteCache) SetHeaviest(ctx context.Context, limit int, rows []domain.PageWeight, ttl time.Duration) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, heaviestKey(limit), raw, ttl).Err()
}

func (c *RedisSiteCache) Untested(ctx context.Context) ([]domain.Page, bool, error) {
	raw, err := c.client.Get(ctx, untestedKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out []domain.Page
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *RedisSiteCache) SetUntested(ctx context.Context, pages []domain.Page, ttl time.Duration) error {
	raw, err := json.Marshal(pages)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, untestedKey, raw, ttl).Err()
}

// ClearAll drops exactly the known site-wide keys and nothing else.
func (c *RedisSiteCache) ClearAll(ctx context.Context) error {
	keys := []string{statsKey, untestedKey}
	for _, limit := range HeaviestLimits {
		keys = append(keys, heaviestKey(limit))
	}
	return c.client.Del(ctx, keys...).Err()
}
