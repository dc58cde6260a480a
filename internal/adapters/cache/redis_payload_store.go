package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// PayloadTTL is how long a volatile payload entry lives. Staleness is a
// separate, stricter policy: an entry can outlive its usefulness and still
// be present so age diagnostics keep working.
const PayloadTTL = 24 * time.Hour

const (
	payloadKeyPrefix   = "carbonfooter:payload:"
	emissionsKeyPrefix = "carbonfooter:emissions:"
)

// RedisPayloadStore implements the volatile per-page payload tier.
type RedisPayloadStore struct {
	client *redis.Client
}

func NewRedisPayloadStore(client *redis.Client) *RedisPayloadStore {
	return &RedisPayloadStore{client: client}
}

func payloadKey(pageID int64) string {
	return payloadKeyPrefix + strconv.FormatInt(pageID, 10)
}

func (s *RedisPayloadStore) Get(ctx context.Context, pageID int64) (*domain.Payload, error) {
	raw, err := s.client.Get(ctx, payloadKey(pageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out domain.Payload
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode payload for page %d: %w", pageID, err)
	}
	return &out, nil
}

func (s *RedisPayloadStore) Set(ctx context.Context, pageID int64, payload domain.Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, payloadKey(pageID), raw, PayloadTTL).Err()
}

func (s *RedisPayloadStore) Delete(ctx context.Context, pageID int64) error {
	return s.client.Del(ctx, payloadKey(pageID)).Err()
}

// MarkStale flips only the stale flag. UpdatedAt must survive so the age of
// the last successful measurement stays observable.
func (s *RedisPayloadStore) MarkStale(ctx context.Context, pageID int64) error {
	current, err := s.Get(ctx, pageID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	current.Stale = true
	return s.Set(ctx, pageID, *current)
}

// FlushAll removes every per-page key (payloads and optimized reads) via
// prefix scans. Site-wide keys are the SiteCache's concern.
func (s *RedisPayloadStore) FlushAll(ctx context.Context) error {
	for _, prefix := range []string{payloadKeyPrefix, emissionsKeyPrefix} {
		iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}
