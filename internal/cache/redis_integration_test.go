//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisBackend(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	r, err := NewRedis(RedisConfig{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	// a foreign key in the same database must survive Flush
	require.NoError(t, r.client.Set(ctx, "other:key", "keep", 0).Err())

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, r.Set(ctx, k, []byte(k), 0))
	}
	v, found, err := r.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("b"), v)

	require.NoError(t, r.Flush(ctx))
	_, found, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	kept, err := r.client.Get(ctx, "other:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "keep", kept)
}
