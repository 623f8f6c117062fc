package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache JSON-кэш поверх Redis с общим префиксом ключей.
type Cache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func New(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const op = "cache.Connect"

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rdb, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get возвращает false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	const op = "cache.Get"

	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%s: decode %s: %w", op, key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	const op = "cache.Set"

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", op, key, err)
	}
	if err := c.rdb.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Generation текущее поколение счётчика name, 0 пока его нет.
func (c *Cache) Generation(ctx context.Context, name string) (int64, error) {
	const op = "cache.Generation"

	gen, err := c.rdb.Get(ctx, c.key(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return gen, nil
}

// Bump переводит счётчик name на следующее поколение. Записи, сохранённые
// под прежним поколением, больше не читаются и истекают по TTL.
func (c *Cache) Bump(ctx context.Context, name string) error {
	const op = "cache.Bump"

	if err := c.rdb.Incr(ctx, c.key(name)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
