package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/novella/pkg/cache"
	errs "github.com/matzehuels/novella/pkg/errors"
)

const redisPrefix = "novella:project:"

// RedisStore keeps each project in a hash with "data" and "updated" fields.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to the server at url and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errs.Wrap(errs.ErrCodeStorage, cache.Network(err), "ping redis")
	}
	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisPrefix}
}

func (s *RedisStore) key(name string) string { return s.prefix + name }

func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := cache.RetryWithBackoff(ctx, func() error {
		b, err := s.client.HGet(ctx, s.key(name), "data").Bytes()
		if errors.Is(err, redis.Nil) {
			return projectNotFound(name)
		}
		if err != nil {
			return cache.Retryable(cache.Network(err))
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "load project")
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	if err := errs.ValidateProjectName(name); err != nil {
		return err
	}
	err := cache.RetryWithBackoff(ctx, func() error {
		return cache.Retryable(cache.Network(s.client.HSet(ctx, s.key(name),
			"data", data,
			"updated", time.Now().UnixMilli(),
		).Err()))
	})
	return storageErr(err, "save project")
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	err := cache.RetryWithBackoff(ctx, func() error {
		return cache.Retryable(cache.Network(s.client.Del(ctx, s.key(name)).Err()))
	})
	return storageErr(err, "delete project")
}

func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		size, err := s.client.HStrLen(ctx, key, "data").Result()
		if err != nil {
			return nil, storageErr(cache.Network(err), "list projects")
		}
		updated, err := s.client.HGet(ctx, key, "updated").Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, storageErr(cache.Network(err), "list projects")
		}
		out = append(out, Entry{
			Name:      strings.TrimPrefix(key, s.prefix),
			Size:      int(size),
			UpdatedAt: time.UnixMilli(updated),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr(cache.Network(err), "list projects")
	}
	sortEntries(out)
	return out, nil
}

func (s *RedisStore) Backend() string { return "redis" }
func (s *RedisStore) Close() error    { return s.client.Close() }

// storageErr passes structured errors through and wraps everything else as
// a storage failure.
func storageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errs.GetCode(err) != "" {
		return err
	}
	return errs.Wrap(errs.ErrCodeStorage, err, "%s", op)
}

var _ Store = (*RedisStore)(nil)
