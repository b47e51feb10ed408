package graphcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedis(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		TTL:            ttl,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestNewRedis(t *testing.T) {
	t.Run("connects", func(t *testing.T) {
		store, _ := setupRedis(t, 0)
		assert.NotNil(t, store)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := NewRedis(RedisOptions{URL: "not-a-url"})
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewRedis(RedisOptions{
			URL:            fmt.Sprintf("redis://%s", addr),
			ConnectTimeout: 500 * time.Millisecond,
		})
		assert.Error(t, err)
	})
}

func TestRedis_GetPut(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t, time.Minute)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "k", graphOf("a", "b")))
	assert.True(t, mr.Exists("graphchart:k"))
	assert.Equal(t, time.Minute, mr.TTL("graphchart:k"))

	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got.Nodes, 2)
	assert.Equal(t, "b", string(got.Edges[0].To))

	stats := store.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedis_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t, time.Minute)

	require.NoError(t, store.Put(ctx, "k", graphOf("a")))
	mr.FastForward(2 * time.Minute)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t, 0)

	require.NoError(t, mr.Set("graphchart:bad", "{not json"))
	_, found, err := store.Get(ctx, "bad")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestRedis_DeleteClear(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t, 0)

	require.NoError(t, mr.Set("other:key", "keep"))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("k%d", i), graphOf("n")))
	}

	require.NoError(t, store.Delete(ctx, "k0"))
	assert.False(t, mr.Exists("graphchart:k0"))

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("graphchart:k1"))
	assert.False(t, mr.Exists("graphchart:k2"))
	assert.True(t, mr.Exists("other:key"))
}

func TestOpen(t *testing.T) {
	store, err := Open(Config{Kind: "none"})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = Open(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, store)
	store.Close()

	mr := miniredis.RunT(t)
	store, err = Open(Config{Kind: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, store)
	store.Close()

	_, err = Open(Config{Kind: "memcached"})
	assert.Error(t, err)
}
