package kv

import (
	"context"
	"errors"
	"strings"
	"sync"

	redisclient "github.com/diorder/diorder/cmd/redis"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound reports a missing key.
var ErrNotFound = errors.New("kv: key not found")

// Repository is the lightweight key-value area holding customer info and
// per-partition staleness records.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

type redisRepo struct{}

// NewRedisRepository returns the Redis-backed implementation. It tolerates an
// absent client: every operation degrades to a no-op miss.
func NewRedisRepository() Repository {
	return &redisRepo{}
}

func (r *redisRepo) Get(ctx context.Context, key string) (string, error) {
	client := redisclient.Get()
	if client == nil {
		return "", ErrNotFound
	}
	val, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisRepo) Set(ctx context.Context, key, value string) error {
	client := redisclient.Get()
	if client == nil {
		return nil
	}
	return client.Set(ctx, key, value, 0).Err()
}

func (r *redisRepo) Delete(ctx context.Context, key string) error {
	client := redisclient.Get()
	if client == nil {
		return nil
	}
	return client.Del(ctx, key).Err()
}

func (r *redisRepo) DeleteByPrefix(ctx context.Context, prefix string) error {
	client := redisclient.Get()
	if client == nil {
		return nil
	}

	iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

type memoryRepo struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryRepository returns a map-backed Repository. It is the degradation
// path when Redis is unreachable, and doubles as the test double.
func NewMemoryRepository() Repository {
	return &memoryRepo{data: make(map[string]string)}
}

func (m *memoryRepo) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (m *memoryRepo) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryRepo) DeleteByPrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}
