package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skymall/checkout-api/internal/usecase"
)

// RedisIdempotencyStore backs client-retry safety. SetNX is the atomic
// check-then-set: exactly one of two concurrent retries wins the lock, and
// the winner's serialized response is replayed to everyone else.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "idemp:"+scope+":"+key, "1", s.ttl).Result()
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, "idemp:"+scope+":"+key).Err()
}

func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope, key string, response []byte) error {
	return s.rdb.Set(ctx, "idemp:resp:"+scope+":"+key, response, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Recall(ctx context.Context, scope, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, "idemp:resp:"+scope+":"+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

var _ usecase.IdempotencyStore = (*RedisIdempotencyStore)(nil)
