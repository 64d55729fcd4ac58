package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "streamtap:cache:"

// RedisStore keeps entries in Redis with native key expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
	counters
}

// NewRedisStore connects to the Redis server at url (redis://...).
func NewRedisStore(ctx context.Context, url string, log *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{
		client: client,
		prefix: redisPrefix,
		log:    log.With("component", "cache", "backend", "redis"),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (e *Entry, err error) {
	defer func() { s.record(err) }()

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	e = &Entry{}
	if err := json.Unmarshal(data, e); err != nil {
		s.log.Warn("dropping unreadable entry", "key", key, "error", err)
		s.client.Del(ctx, s.prefix+key)
		return nil, ErrMiss
	}
	return e, nil
}

func (s *RedisStore) Put(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ttl := time.Until(e.ExpiresAt)
	if e.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.prefix+e.Key, data, ttl).Err()
}

// Purge deletes every key under the store's prefix.
func (s *RedisStore) Purge(ctx context.Context) (int64, error) {
	var removed int64
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		removed += n
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}

func (s *RedisStore) Stats(ctx context.Context) Stats {
	st := Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		st.Entries++
	}
	if err := iter.Err(); err != nil {
		s.log.Warn("count failed", "error", err)
	}
	return st
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
