//go:build integration

package lockstore

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T) goredis.UniversalClient {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	require.NoError(t, client.Ping(context.Background()).Err(), "failed to connect to Redis")

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStoreWithTTL(newTestRedisClient(t), "lockstore-test", time.Second)

	require.NoError(t, s.Unlock(ctx, "k"))

	require.NoError(t, s.Lock(ctx, "k"))
	require.NoError(t, s.Lock(ctx, "k"))
	ok, err := s.IsLocked(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Unlock(ctx, "k"))
	ok, err = s.IsLocked(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreLockedUnder(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStoreWithTTL(newTestRedisClient(t), "lockstore-under", time.Second)

	for _, k := range []string{"c/a", "c/a/1", "c/ab"} {
		require.NoError(t, s.Lock(ctx, k))
		t.Cleanup(func() { _ = s.Unlock(ctx, k) })
	}
	keys, err := s.LockedUnder(ctx, "c/a")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"c/a", "c/a/1"}, keys)
}

func TestRedisStoreMarkerExpires(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStoreWithTTL(newTestRedisClient(t), "lockstore-ttl", 100*time.Millisecond)

	require.NoError(t, s.Lock(ctx, "k"))
	time.Sleep(250 * time.Millisecond)

	ok, err := s.IsLocked(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
