package database

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed redis tests")
}

func setupRedis(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	return ctx, rdb
}

func TestDeduper_ClaimOnce(t *testing.T) {
	ctx, rdb := setupRedis(t)
	d := NewDeduper(rdb, "callback:", time.Minute)

	first, err := d.Claim(ctx, "42")
	require.NoError(t, err)
	second, err := d.Claim(ctx, "42")
	require.NoError(t, err)
	other, err := d.Claim(ctx, "43")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, other)

	ttl, err := rdb.TTL(ctx, "callback:42").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestDeduper_Release(t *testing.T) {
	ctx, rdb := setupRedis(t)
	d := NewDeduper(rdb, "reminder:", time.Minute)

	ok, err := d.Claim(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.Release(ctx, "7"))

	ok, err = d.Claim(ctx, "7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeduper_Expires(t *testing.T) {
	ctx, rdb := setupRedis(t)
	d := NewDeduper(rdb, "short:", time.Second)

	ok, err := d.Claim(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, err := d.Claim(ctx, "1")
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond)
}
