// Package redis implements architex.StateStore on Redis. Each canvas is a
// JSON value under its own key; a set indexes the stored keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "architex:canvas:"
	keysSet   = "architex:canvases"
)

// RedisStore persists canvas state in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing client. A ttl of zero keeps entries forever.
func New(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewFromURL parses a redis:// URL and pings the server.
func NewFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return New(client, ttl), nil
}

func (s *RedisStore) makeKey(key string) string {
	return keyPrefix + key
}

func (s *RedisStore) Save(ctx context.Context, key string, st *architex.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redis: encode state %s: %w", key, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.makeKey(key), data, s.ttl)
		pipe.SAdd(ctx, keysSet, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save state %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (*architex.State, error) {
	data, err := s.client.Get(ctx, s.makeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, architex.ErrStateNotFound
		}
		return nil, fmt.Errorf("redis: get state %s: %w", key, err)
	}
	var st architex.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("redis: decode state %s: %w", key, err)
	}
	return &st, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.makeKey(key))
		pipe.SRem(ctx, keysSet, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete state %s: %w", key, err)
	}
	return nil
}

// Keys lists stored canvases, pruning index entries whose value expired.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, keysSet).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list keys: %w", err)
	}
	if len(members) == 0 {
		return []string{}, nil
	}

	full := make([]string, len(members))
	for i, m := range members {
		full[i] = s.makeKey(m)
	}
	exists, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: check keys: %w", err)
	}

	keys := make([]string, 0, len(members))
	var stale []any
	for i, v := range exists {
		if v == nil {
			stale = append(stale, members[i])
			continue
		}
		keys = append(keys, strings.TrimPrefix(full[i], keyPrefix))
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, keysSet, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis: prune keys: %w", err)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
