package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"estekhdam/internal/auth/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
)

const keyPrefix = "session:"

// RedisStore keeps sessions as JSON values whose TTL matches ExpiresAt.
// Read-modify-write goes through WATCH so concurrent requests on one session
// cannot lose updates; a lost race surfaces as sentinel.ErrConflict wrapping
// redis.TxFailedErr.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func key(sid id.SessionID) string {
	return keyPrefix + sid.String()
}

func (s *RedisStore) Create(ctx context.Context, sess *models.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("create session: %w", sentinel.ErrInvalidState)
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key(sess.ID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func decode(raw []byte) (*models.Session, error) {
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) FindByID(ctx context.Context, sid id.SessionID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	sess, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(s.now()) {
		return nil, sentinel.ErrNotFound
	}
	return sess, nil
}

// Execute applies mutate when validate accepts the current session. The
// remaining TTL is preserved.
func (s *RedisStore) Execute(ctx context.Context, sid id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	var result *models.Session
	k := key(sid)
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		raw, err := rtx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("load session: %w", err)
		}
		sess, err := decode(raw)
		if err != nil {
			return err
		}
		if sess.IsExpired(s.now()) {
			return sentinel.ErrNotFound
		}
		if validate != nil {
			if err := validate(sess); err != nil {
				return err
			}
		}
		mutate(sess)
		updated, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, k, updated, redis.SetArgs{KeepTTL: true})
			return nil
		})
		if err != nil {
			return err
		}
		result = sess
		return nil
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid id.SessionID) error {
	n, err := s.client.Del(ctx, key(sid)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
