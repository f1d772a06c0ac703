package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "cs2news:delivered"

// RedisStore keeps fingerprints in Redis: a plain string key under the
// single policy, a sorted set scored by record time under append.
type RedisStore struct {
	client    redis.UniversalClient
	key       string
	retention Retention
	now       func() time.Time
}

// NewRedisStore wraps an existing client. An empty key uses the default.
func NewRedisStore(client redis.UniversalClient, key string, retention Retention) (*RedisStore, error) {
	if err := retention.Validate(); err != nil {
		return nil, err
	}
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key, retention: retention, now: time.Now}, nil
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, key string, retention Retention) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, key, retention)
}

func (s *RedisStore) Contains(ctx context.Context, fp string) (bool, error) {
	if s.retention.Policy == PolicySingle {
		current, err := s.client.Get(ctx, s.key).Result()
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("redis get %s: %w", s.key, err)
		}
		return current == fp, nil
	}

	_, err := s.client.ZScore(ctx, s.key, fp).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis zscore %s: %w", s.key, err)
	}
	return true, nil
}

func (s *RedisStore) Record(ctx context.Context, fp string) error {
	if s.retention.Policy == PolicySingle {
		if err := s.client.Set(ctx, s.key, fp, 0).Err(); err != nil {
			return fmt.Errorf("redis set %s: %w", s.key, err)
		}
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.key, redis.Z{Score: float64(s.now().UnixNano()), Member: fp})
		if s.retention.Keep > 0 {
			pipe.ZRemRangeByRank(ctx, s.key, 0, int64(-s.retention.Keep-1))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
