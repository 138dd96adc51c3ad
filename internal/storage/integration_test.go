//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisBackend_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	b, err := DialRedis(ctx, opts.Addr, "", 0, "visacheck-test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	runBackendContract(t, b)

	// Keys live under the prefix.
	require.NoError(t, b.Set(ctx, "mode", "compare"))
	client := redis.NewClient(opts)
	defer client.Close()
	v, err := client.Get(ctx, "visacheck-test:mode").Result()
	require.NoError(t, err)
	require.Equal(t, "compare", v)
}

func TestPostgresBackend_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("visacheck"),
		tcpostgres.WithUsername("visacheck"),
		tcpostgres.WithPassword("visacheck"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	b, err := OpenPostgres(ctx, dsn, "selection_state")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	runBackendContract(t, b)

	// Migration is idempotent.
	again, err := OpenPostgres(ctx, dsn, "selection_state")
	require.NoError(t, err)
	require.NoError(t, again.Close())
}
