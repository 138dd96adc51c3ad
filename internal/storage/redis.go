package storage

import (
	"context"
	"errors"
	"fmt"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each key as a plain Redis string under a prefix.
type RedisBackend struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisBackend wraps an existing client. The caller keeps ownership of it.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection with PING.
// The returned backend closes the client on Close.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, vcerrors.NewStorageError("open", addr, fmt.Errorf("redis ping failed: %w", err))
	}
	return &RedisBackend{client: client, prefix: prefix, owned: true}, nil
}

func (r *RedisBackend) key(k string) string { return r.prefix + k }

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, vcerrors.NewStorageError("get", key, err)
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return vcerrors.NewStorageError("set", key, err)
	}
	return nil
}

func (r *RedisBackend) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return vcerrors.NewStorageError("remove", key, err)
	}
	return nil
}

func (r *RedisBackend) RemoveMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return vcerrors.NewStorageError("remove_many", "", err)
	}
	return nil
}

// Close closes the client if the backend dialed it.
func (r *RedisBackend) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

var _ storage.Backend = (*RedisBackend)(nil)
