package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:wallets:mutations:"

// RedisFixedWindow shares one fixed-window counter between every instance
// pointing at the same Redis. Each window has its own key, so a boundary is a
// key change rather than a reset.
type RedisFixedWindow struct {
	client *redis.Client
	limit  int64
	length time.Duration
	now    func() time.Time
}

func NewRedisFixedWindow(client *redis.Client, limit int, length time.Duration) *RedisFixedWindow {
	if length <= 0 {
		length = time.Second
	}
	return &RedisFixedWindow{client: client, limit: int64(limit), length: length, now: time.Now}
}

// Allow fails open: when Redis is unreachable the request is admitted and the
// error is returned for logging.
func (l *RedisFixedWindow) Allow(ctx context.Context) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	epoch := l.now().UnixNano() / int64(l.length)
	key := fmt.Sprintf("%s%d", redisKeyPrefix, epoch)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, 2*l.length)
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= l.limit, nil
}
