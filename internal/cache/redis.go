package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a small byte-value cache. The trend analyzer uses it so many
// plans firing inside the same cadence window share one upstream analysis.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(opt *redis.Options) *RedisStore {
	return &RedisStore{Client: redis.NewClient(opt)}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.Client == nil {
		return nil, false, nil
	}
	b, err := s.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Del(ctx, key).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}
