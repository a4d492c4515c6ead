package bigcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{MaxEntriesInWindow: 1024, HardMaxCacheSizeMB: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	_, ok, err := p.Get(ctx, "cache/a")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = p.Set(ctx, "cache/a", []byte("v1"), 2, 0)
	require.NoError(t, err)
	require.True(t, ok)

	b, ok, err := p.Get(ctx, "cache/a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), b)

	require.NoError(t, p.Del(ctx, "cache/a"))
	require.NoError(t, p.Del(ctx, "cache/a"), "deleting a missing key is not an error")
	_, ok, _ = p.Get(ctx, "cache/a")
	require.False(t, ok)
}

func TestClearPrefix(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	for _, k := range []string{"cache/a", "cache/a/1", "cache/a/2/x", "cache/ab", "cache/b", "other/a"} {
		_, err := p.Set(ctx, k, []byte(k), 1, 0)
		require.NoError(t, err)
	}

	require.NoError(t, p.Clear(ctx, "cache/a"))
	for _, k := range []string{"cache/a", "cache/a/1", "cache/a/2/x"} {
		_, ok, _ := p.Get(ctx, k)
		require.False(t, ok, k)
	}
	for _, k := range []string{"cache/ab", "cache/b", "other/a"} {
		_, ok, _ := p.Get(ctx, k)
		require.True(t, ok, k)
	}

	require.NoError(t, p.Clear(ctx, "cache"))
	require.Equal(t, 1, p.Len())
}

func TestLockMarkers(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	locked, err := p.IsLocked(ctx, "cache/k")
	require.NoError(t, err)
	require.False(t, locked)

	require.NoError(t, p.Lock(ctx, "cache/k"))
	require.NoError(t, p.Lock(ctx, "cache/k"))
	locked, _ = p.IsLocked(ctx, "cache/k")
	require.True(t, locked)

	require.NoError(t, p.Unlock(ctx, "cache/k"))
	require.NoError(t, p.Unlock(ctx, "cache/k"))
	locked, _ = p.IsLocked(ctx, "cache/k")
	require.False(t, locked)
}

func TestClearKeepsMarkers(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	_, err := p.Set(ctx, "cache/a/1", []byte("v"), 1, 0)
	require.NoError(t, err)
	require.NoError(t, p.Lock(ctx, "cache/a/1"))
	require.NoError(t, p.Lock(ctx, "cache/b"))

	keys, err := p.LockedUnder(ctx, "cache/a")
	require.NoError(t, err)
	require.Equal(t, []string{"cache/a/1"}, keys)

	require.NoError(t, p.Clear(ctx, "cache"))
	_, ok, _ := p.Get(ctx, "cache/a/1")
	require.False(t, ok)
	locked, _ := p.IsLocked(ctx, "cache/a/1")
	require.True(t, locked)
}
