package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey        = "carbonfooter:queue"
	queuePendingKey = "carbonfooter:queue:pending"
)

// RedisRefreshQueue is the one-shot refresh task queue. A membership set
// alongside the list keeps enqueues de-duplicated per page.
type RedisRefreshQueue struct {
	client *redis.Client
}

func NewRedisRefreshQueue(client *redis.Client) *RedisRefreshQueue {
	return &RedisRefreshQueue{client: client}
}

func (q *RedisRefreshQueue) Enqueue(ctx context.Context, pageID int64) (bool, error) {
	member := strconv.FormatInt(pageID, 10)
	added, err := q.client.SAdd(ctx, queuePendingKey, member).Result()
	if err != nil {
		return false, err
	}
	if added == 0 {
		return false, nil
	}
	if err := q.client.RPush(ctx, queueKey, member).Err(); err != nil {
		_ = q.client.SRem(ctx, queuePendingKey, member).Err()
		return false, err
	}
	return true, nil
}

func (q *RedisRefreshQueue) Dequeue(ctx context.Context) (int64, bool, error) {
	raw, err := q.client.LPop(ctx, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	_ = q.client.SRem(ctx, queuePendingKey, raw).Err()
	pageID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return pageID, true, nil
}

func (q *RedisRefreshQueue) Pending(ctx context.Context, pageID int64) (bool, error) {
	return q.client.SIsMember(ctx, queuePendingKey, strconv.FormatInt(pageID, 10)).Result()
}
