package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// KV is the process-wide key-value slot the stores persist into. A missing
// key reads back as the empty string, not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type redisKV struct {
	client *redis.Client
}

// NewRedisKV returns a KV backed by plain Redis string keys.
func NewRedisKV(client *redis.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV returns an in-process KV. It backs tests and the degraded mode
// entered when Redis is unreachable at startup.
func NewMemoryKV() KV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
