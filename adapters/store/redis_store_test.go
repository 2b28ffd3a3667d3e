package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/internal/testutil"
)

func setupRedisStore(t *testing.T) (*RedisNonceStore, *redis.Client) {
	t.Helper()
	addr := testutil.StartRedis(t)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisNonceStore(client, time.Minute), client
}

func TestRedisNonceStore_PutTake(t *testing.T) {
	ctx := context.Background()
	s, _ := setupRedisStore(t)
	now := time.Now().Truncate(time.Millisecond)

	nonce := core.Nonce{UserID: "u1", Value: "Login nonce: 1 at 2", CreatedAt: now, ExpiresAt: now.Add(core.NonceTTL)}
	require.NoError(t, s.Put(ctx, nonce))

	got, err := s.Take(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, nonce.Value, got.Value)
	assert.True(t, got.ExpiresAt.Equal(nonce.ExpiresAt))

	_, err = s.Take(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNoNonceFound)
}

func TestRedisNonceStore_KeepsExpiredForRetention(t *testing.T) {
	ctx := context.Background()
	s, client := setupRedisStore(t)
	now := time.Now()

	require.NoError(t, s.Put(ctx, core.Nonce{UserID: "u1", Value: "v", CreatedAt: now.Add(-core.NonceTTL), ExpiresAt: now.Add(-time.Second)}))

	ttl, err := client.TTL(ctx, "walletlink:nonce:u1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	got, err := s.Take(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.Expired(now))
}
