package services

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnreadCounter is the per-user unread counter cache. It is advisory: the
// durable store is always the source of truth and the counter is rebuilt
// from it on reconciliation. An absent key reads as zero. Implementations
// must make Increment and Decrement atomic; Reset is last-writer-wins and
// only ever runs from reconciliation.
type UnreadCounter interface {
	Increment(ctx context.Context, userID primitive.ObjectID, n int64) error
	Decrement(ctx context.Context, userID primitive.ObjectID, n int64) error
	Reset(ctx context.Context, userID primitive.ObjectID, value int64) error
	Get(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// RedisUnreadCounter keeps unread counts in Redis, outside the main data
// store's transaction boundary. A nil client (Redis down at startup) makes
// every operation report ErrCacheUnavailable so callers degrade to
// database counts.
type RedisUnreadCounter struct {
	client *redis.Client
}

func NewRedisUnreadCounter(client *redis.Client) *RedisUnreadCounter {
	return &RedisUnreadCounter{client: client}
}

func unreadCountKey(userID primitive.ObjectID) string {
	return fmt.Sprintf("unread_count:%s", userID.Hex())
}

// decrementFloorScript decrements and clamps at zero in one server-side
// step, so a concurrent increment can never be overwritten by the clamp.
var decrementFloorScript = redis.NewScript(`
local v = redis.call("DECRBY", KEYS[1], ARGV[1])
if v < 0 then
	redis.call("SET", KEYS[1], "0")
	v = 0
end
return v
`)

func (c *RedisUnreadCounter) Increment(ctx context.Context, userID primitive.ObjectID, n int64) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}
	if err := c.client.IncrBy(ctx, unreadCountKey(userID), n).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func (c *RedisUnreadCounter) Decrement(ctx context.Context, userID primitive.ObjectID, n int64) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}
	// The counter never goes negative. Drift below zero can only come from
	// a missed increment and is healed here and on the next reconciliation.
	if err := decrementFloorScript.Run(ctx, c.client, []string{unreadCountKey(userID)}, n).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func (c *RedisUnreadCounter) Reset(ctx context.Context, userID primitive.ObjectID, value int64) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}
	if err := c.client.Set(ctx, unreadCountKey(userID), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func (c *RedisUnreadCounter) Get(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	if c.client == nil {
		return 0, ErrCacheUnavailable
	}
	val, err := c.client.Get(ctx, unreadCountKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if val < 0 {
		return 0, nil
	}
	return val, nil
}
