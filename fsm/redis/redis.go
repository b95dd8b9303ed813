// Package redis provides a remote fsm.Storage backend over
// github.com/redis/go-redis/v9, surviving process restarts and shared
// across bot instances.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hrygo/maxbot/chats"
	"github.com/hrygo/maxbot/fsm"
)

// updateDataScript atomically reads the current data hash field, compares
// it with the snapshot the caller read (ARGV[1]) and, only if the stored
// value hasn't changed since, writes the caller's merged result (ARGV[2],
// computed client-side against that snapshot) — a compare-and-swap guard
// against lost updates from concurrent callers.
const updateDataScript = `
local current = redis.call("HGET", KEYS[1], "data")
if current == false then current = "{}" end
if current ~= ARGV[1] then
  return {current, 0}
end
redis.call("HSET", KEYS[1], "data", ARGV[2])
if ARGV[3] ~= "0" then
  redis.call("EXPIRE", KEYS[1], ARGV[3])
end
return {ARGV[2], 1}
`

// Storage is a Redis-backed fsm.Storage. Each StorageKey maps to one hash
// key "<prefix>:<chat_id|_>:<user_id|_>" with "state" and "data" fields.
type Storage struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// Option configures Storage.
type Option func(*Storage)

// WithPrefix sets the key prefix (default "fsm").
func WithPrefix(prefix string) Option {
	return func(s *Storage) { s.prefix = prefix }
}

// WithTTL sets a per-key expiry refreshed on every write. Zero (the
// default) disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Storage) { s.ttl = ttl }
}

// New builds a Storage over an already-configured go-redis client.
func New(client *goredis.Client, opts ...Option) *Storage {
	s := &Storage{client: client, prefix: "fsm"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) redisKey(key chats.StorageKey) string {
	return fmt.Sprintf("%s:%s", s.prefix, key.String())
}

func (s *Storage) GetState(ctx context.Context, key chats.StorageKey) (string, error) {
	v, err := s.client.HGet(ctx, s.redisKey(key), "state").Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fsm/redis: get state: %w", err)
	}
	return v, nil
}

func (s *Storage) SetState(ctx context.Context, key chats.StorageKey, state string) error {
	rk := s.redisKey(key)
	if err := s.client.HSet(ctx, rk, "state", state).Err(); err != nil {
		return fmt.Errorf("fsm/redis: set state: %w", err)
	}
	return s.touchTTL(ctx, rk)
}

func (s *Storage) GetData(ctx context.Context, key chats.StorageKey) (map[string]any, error) {
	raw, err := s.client.HGet(ctx, s.redisKey(key), "data").Result()
	if err == goredis.Nil {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fsm/redis: get data: %w", err)
	}
	if raw == "" {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("fsm/redis: decode data: %w", err)
	}
	return data, nil
}

func (s *Storage) SetData(ctx context.Context, key chats.StorageKey, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("fsm/redis: encode data: %w", err)
	}
	rk := s.redisKey(key)
	if err := s.client.HSet(ctx, rk, "data", raw).Err(); err != nil {
		return fmt.Errorf("fsm/redis: set data: %w", err)
	}
	return s.touchTTL(ctx, rk)
}

// UpdateData loops a read-compute-CAS cycle through updateDataScript,
// guaranteeing the read-modify-write is atomic with respect to other
// concurrent UpdateData callers on the same key, without holding a
// distributed lock.
func (s *Storage) UpdateData(ctx context.Context, key chats.StorageKey, fn func(map[string]any) map[string]any) (map[string]any, error) {
	rk := s.redisKey(key)
	ttlSeconds := int64(s.ttl / time.Second)

	for {
		current, err := s.GetData(ctx, key)
		if err != nil {
			return nil, err
		}
		currentRaw, err := json.Marshal(current)
		if err != nil {
			return nil, fmt.Errorf("fsm/redis: encode snapshot: %w", err)
		}

		updated := fn(current)
		updatedRaw, err := json.Marshal(updated)
		if err != nil {
			return nil, fmt.Errorf("fsm/redis: encode update: %w", err)
		}

		res, err := s.client.Eval(ctx, updateDataScript, []string{rk},
			string(currentRaw), string(updatedRaw), fmt.Sprintf("%d", ttlSeconds)).Result()
		if err != nil {
			return nil, fmt.Errorf("fsm/redis: update data: %w", err)
		}

		pair, ok := res.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("fsm/redis: unexpected EVAL reply: %#v", res)
		}
		if applied, _ := pair[1].(int64); applied == 1 {
			return updated, nil
		}
		// Lost the race against a concurrent writer; retry against the
		// fresh value.
	}
}

func (s *Storage) Clear(ctx context.Context, key chats.StorageKey) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("fsm/redis: clear: %w", err)
	}
	return nil
}

func (s *Storage) touchTTL(ctx context.Context, redisKey string) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.client.Expire(ctx, redisKey, s.ttl).Err(); err != nil {
		return fmt.Errorf("fsm/redis: refresh ttl: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *Storage) Close() error {
	return s.client.Close()
}

var _ fsm.Storage = (*Storage)(nil)
