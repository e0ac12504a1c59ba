package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/config"
)

func TestRedisClient_TryLock(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	client, err := NewRedisClient(ctx, &config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	defer client.Close()

	token, ok, err := client.TryLock(ctx, "lock:sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = client.TryLock(ctx, "lock:sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock cannot be claimed twice")

	mr.FastForward(2 * time.Minute)
	_, ok, err = client.TryLock(ctx, "lock:sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock is released when the ttl lapses")
}

func TestRedisClient_Unlock(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	client, err := NewRedisClient(ctx, &config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	defer client.Close()

	token, ok, err := client.TryLock(ctx, "lock:sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.Unlock(ctx, "lock:sweep", "someone-else"))
	assert.True(t, mr.Exists("lock:sweep"), "a foreign token does not release the lock")

	require.NoError(t, client.Unlock(ctx, "lock:sweep", token))
	assert.False(t, mr.Exists("lock:sweep"))

	_, ok, err = client.TryLock(ctx, "lock:sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released lock can be claimed again at once")
}

func TestRedisClient_GetMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	client, err := NewRedisClient(ctx, &config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Get(ctx, "absent")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, client.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, client.Ping(ctx))
	v, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}
