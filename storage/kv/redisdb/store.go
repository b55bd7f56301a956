package redisdb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/ktx/core"
)

// Store is a core.KVStore backed by Redis. Every key is namespaced with prefix.
type Store struct {
	client *redis.Client
	prefix string
}

var _ core.KVStore = (*Store)(nil)

func Open(conf *core.Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Store.RedisAddr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return NewStore(client, conf.Store.RedisPrefix)
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, core.ErrKeyNotFound
	}
	return val, errors.Wrap(err, "redis get")
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return errors.Wrap(s.client.Set(ctx, s.prefix+key, value, 0).Err(), "redis set")
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.prefix+key)
	}
	return errors.Wrap(s.client.Del(ctx, prefixed...).Err(), "redis del")
}

func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx).Err(), "redis ping")
}

func (s *Store) Close() error {
	return s.client.Close()
}
