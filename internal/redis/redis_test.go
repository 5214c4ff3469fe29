package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := NewClient(&config.Config{
		RedisHost:        mr.Host(),
		RedisPort:        mr.Port(),
		AdmissionLockTTL: 10 * time.Second,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestAdmissionLock(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	ok, err := client.LockAdmission(ctx, 7, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.LockAdmission(ctx, 7, 3)
	require.NoError(t, err)
	assert.False(t, ok, "second lock for the same user and event must fail")

	ok, err = client.LockAdmission(ctx, 8, 3)
	require.NoError(t, err)
	assert.True(t, ok, "other users are not blocked")

	require.NoError(t, client.UnlockAdmission(ctx, 7, 3))
	ok, err = client.LockAdmission(ctx, 7, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(11 * time.Second)
	assert.False(t, mr.Exists("admission_lock:3:8"), "locks expire")
}

func TestAllowFixedWindow(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := client.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := client.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = client.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts after expiry")
}

func TestAllowAlwaysSetsWindow(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := client.Allow(ctx, "5.6.7.8", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl := mr.TTL("rate_limit:5.6.7.8")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	_, err = client.Allow(ctx, "5.6.7.8", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ttl, mr.TTL("rate_limit:5.6.7.8"), "later hits keep the window")

	v, err := mr.Get("rate_limit:5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestErrorsWhenServerIsDown(t *testing.T) {
	client, mr := newTestClient(t)
	mr.Close()

	_, err := client.LockAdmission(context.Background(), 1, 1)
	assert.Error(t, err)

	_, err = client.Allow(context.Background(), "1.2.3.4", 3, time.Minute)
	assert.Error(t, err)
}
