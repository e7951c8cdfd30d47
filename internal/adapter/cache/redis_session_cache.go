package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

// RedisSessionCache is a read-through cache in front of the sessions table.
// Confirm hits it first so the hot path skips MySQL; a miss is not an error.
type RedisSessionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionCache(rdb *redis.Client, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{rdb: rdb, ttl: ttl}
}

func (c *RedisSessionCache) Put(ctx context.Context, s *domain.CheckoutSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, "session:"+s.SessionID, raw, c.ttl).Err()
}

func (c *RedisSessionCache) Del(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, "session:"+sessionID).Err()
}

func (c *RedisSessionCache) Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, bool, error) {
	raw, err := c.rdb.Get(ctx, "session:"+sessionID).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s domain.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

var _ usecase.SessionCache = (*RedisSessionCache)(nil)
