package lockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"estekhdam/internal/auth/models"
)

const keyPrefix = "login_failures:"

// RedisStore keeps one hash per key with fields count, first_at and
// locked_until (unix seconds). The key TTL is the failure window, stretched
// to the lock end once a lock is applied.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func decode(key string, fields map[string]string) (*models.LoginFailures, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	rec := &models.LoginFailures{Key: key}
	if v, ok := fields["count"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("decode failure count: %w", err)
		}
		rec.Count = n
	}
	if v, ok := fields["first_at"]; ok {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode first failure: %w", err)
		}
		rec.FirstAt = time.Unix(sec, 0).UTC()
	}
	if v, ok := fields["locked_until"]; ok {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode lock: %w", err)
		}
		until := time.Unix(sec, 0).UTC()
		rec.LockedUntil = &until
	}
	return rec, nil
}

// Get ignores now: expiry is left to the key TTL.
func (s *RedisStore) Get(ctx context.Context, key string, _ time.Time) (*models.LoginFailures, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("get login failures: %w", err)
	}
	return decode(key, fields)
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string, now time.Time, window time.Duration) (*models.LoginFailures, error) {
	k := keyPrefix + key
	var all *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, k, "count", 1)
		p.HSetNX(ctx, k, "first_at", now.Unix())
		p.ExpireNX(ctx, k, window)
		all = p.HGetAll(ctx, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record login failure: %w", err)
	}
	return decode(key, all.Val())
}

func (s *RedisStore) Lock(ctx context.Context, key string, until time.Time) error {
	k := keyPrefix + key
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, "locked_until", until.Unix())
		p.ExpireAt(ctx, k, until)
		return nil
	})
	if err != nil {
		return fmt.Errorf("lock login: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}
