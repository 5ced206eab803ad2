package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nakedpantry/backend/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheFromClient(client), mr
}

func TestRedisCache_SetGetExpire(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "related:f1", []byte(`["a"]`), 10*time.Minute))

	got, err := c.Get(ctx, "related:f1")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, string(got))

	mr.FastForward(11 * time.Minute)

	_, err = c.Get(ctx, "related:f1")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCache_ExistsAndDelete(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCache_DeletePrefix(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "aisles:foods:1", []byte("x"), time.Minute))
	require.NoError(t, c.Set(ctx, "aisles:foods:2", []byte("x"), time.Minute))
	require.NoError(t, c.Set(ctx, "related:1", []byte("x"), time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "aisles:"))

	assert.False(t, mr.Exists("aisles:foods:1"))
	assert.False(t, mr.Exists("aisles:foods:2"))
	assert.True(t, mr.Exists("related:1"))

	require.NoError(t, c.DeletePrefix(ctx, "nothing:"))
}

func TestRedisCache_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedisCacheFromClient(client)
	mr.Close()

	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache("not a url")
	assert.Error(t, err)
}

func TestNewRedisCache_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("k"))
}
