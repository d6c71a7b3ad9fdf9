package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"studybuddy/studybuddy/types"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "studybuddy:session:"

// RedisStore keeps sessions in Redis so they survive restarts. Expiry is the
// key TTL, extended on every read and write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, data *SessionData) error {
	now := time.Now()
	data.CreatedAt = now
	data.UpdatedAt = now
	data.ExpiresAt = now.Add(s.ttl)
	data.Version = 1

	val, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(data.ID), val, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*SessionData, error) {
	key := s.key(id)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data SessionData
	if err := json.Unmarshal(val, &data); err != nil {
		return nil, err
	}

	// A failed refresh only shortens the session; the read still succeeds.
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err == nil {
		data.ExpiresAt = time.Now().Add(s.ttl)
	}
	return &data, nil
}

// Update uses WATCH/MULTI/EXEC so two writers cannot both pass the version check.
func (s *RedisStore) Update(ctx context.Context, data *SessionData) error {
	key := s.key(data.ID)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return types.ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored SessionData
		if err := json.Unmarshal(val, &stored); err != nil {
			return err
		}
		if stored.Version != data.Version {
			return types.ErrVersionConflict
		}

		next := data.clone()
		next.Version++
		next.UpdatedAt = time.Now()
		next.ExpiresAt = next.UpdatedAt.Add(s.ttl)
		newVal, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		if err != nil {
			if errors.Is(err, redis.TxFailedErr) {
				return types.ErrVersionConflict
			}
			return err
		}
		data.Version = next.Version
		data.UpdatedAt = next.UpdatedAt
		data.ExpiresAt = next.ExpiresAt
		return nil
	}, key)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
