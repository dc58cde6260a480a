package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "carbonfooter:lock:"

// RedisRefreshLockStore de-duplicates refresh attempts with SETNX markers.
// The lock is advisory; TTL expiry is the only recovery path for a holder
// that dies without releasing.
type RedisRefreshLockStore struct {
	client *redis.Client
}

func NewRedisRefreshLockStore(client *redis.Client) *RedisRefreshLockStore {
	return &RedisRefreshLockStore{client: client}
}

func lockKey(pageID int64) string {
	return lockKeyPrefix + strconv.FormatInt(pageID, 10)
}

func (s *RedisRefreshLockStore) Acquire(ctx context.Context, pageID int64, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, lockKey(pageID), "1", ttl).Result()
}

func (s *RedisRefreshLockStore) Release(ctx context.Context, pageID int64) error {
	return s.client.Del(ctx, lockKey(pageID)).Err()
}

func (s *RedisRefreshLockStore) Held(ctx context.Context, pageID int64) (bool, error) {
	n, err := s.client.Exists(ctx, lockKey(pageID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
