package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type row struct {
	ID    string `json:"id"`
	Price int    `json:"price"`
}

// startRedis поднимает redis в docker, без docker тест пропускается.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в short режиме")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("не удалось остановить redis: %v", err)
		}
	})
	if err != nil {
		t.Skipf("redis в docker недоступен: %v", err)
	}

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestCache_GetSet(t *testing.T) {
	rdb := startRedis(t)
	c := New(rdb, "test:", time.Minute)
	ctx := context.Background()

	var got []row
	hit, err := c.Get(ctx, "rows", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []row{{ID: "1", Price: 500}, {ID: "1-1", Price: 450}}
	require.NoError(t, c.Set(ctx, "rows", want))

	hit, err = c.Get(ctx, "rows", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	ttl, err := rdb.TTL(ctx, "test:rows").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestCache_Generation(t *testing.T) {
	rdb := startRedis(t)
	c := New(rdb, "test:", time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "data:gen")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Bump(ctx, "data:gen"))
	require.NoError(t, c.Bump(ctx, "data:gen"))

	gen, err = c.Generation(ctx, "data:gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

func TestCache_GetBrokenValue(t *testing.T) {
	rdb := startRedis(t)
	c := New(rdb, "test:", time.Minute)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "test:rows", "not json", time.Minute).Err())

	var got []row
	hit, err := c.Get(ctx, "rows", &got)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
