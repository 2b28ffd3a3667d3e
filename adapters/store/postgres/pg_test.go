package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/internal/testutil"
)

func setupStore(t *testing.T) (context.Context, *Store) {
	t.Helper()
	dsn := testutil.StartPostgres(t)
	ctx := context.Background()

	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, CreateSchema(ctx, db))
	return ctx, NewStore(db)
}

func TestStore_NonceLifecycle(t *testing.T) {
	ctx, s := setupStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.Put(ctx, core.Nonce{UserID: "u1", Value: "first", CreatedAt: now, ExpiresAt: now.Add(core.NonceTTL)}))
	require.NoError(t, s.Put(ctx, core.Nonce{UserID: "u1", Value: "second", CreatedAt: now, ExpiresAt: now.Add(core.NonceTTL)}))

	got, err := s.Take(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Value)
	assert.True(t, got.ExpiresAt.Equal(now.Add(core.NonceTTL)))

	_, err = s.Take(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNoNonceFound)
}

func TestStore_WalletLinksAreMergedByAddress(t *testing.T) {
	ctx, s := setupStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	user, err := s.AddWalletLink(ctx, "u1", core.WalletLink{Address: "0xABC0000000000000000000000000000000000001", LinkedAt: now, Verified: true, ChainID: 56})
	require.NoError(t, err)
	assert.Equal(t, 1, user.WalletCount())
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", user.Wallets[0].Address)

	later := now.Add(time.Minute)
	user, err = s.AddWalletLink(ctx, "u1", core.WalletLink{Address: "0xabc0000000000000000000000000000000000001", LinkedAt: later, Verified: true, ChainID: 56})
	require.NoError(t, err)
	require.Equal(t, 1, user.WalletCount())
	assert.True(t, user.Wallets[0].LinkedAt.Equal(later))

	user, err = s.AddWalletLink(ctx, "u1", core.WalletLink{Address: "0xdef0000000000000000000000000000000000002", LinkedAt: later, Verified: true, ChainID: 56})
	require.NoError(t, err)
	assert.Equal(t, 2, user.WalletCount())

	fetched, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.WalletCount())
	assert.Equal(t, uint64(56), fetched.Wallets[1].ChainID)
}

func TestStore_PurgeExpired(t *testing.T) {
	ctx, s := setupStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	retention := 10 * time.Minute

	// abandoned long ago, recently expired, still live
	require.NoError(t, s.Put(ctx, core.Nonce{UserID: "stale", Value: "a", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Hour).Add(core.NonceTTL)}))
	require.NoError(t, s.Put(ctx, core.Nonce{UserID: "recent", Value: "b", CreatedAt: now.Add(-6 * time.Minute), ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, s.Put(ctx, core.Nonce{UserID: "live", Value: "c", CreatedAt: now, ExpiresAt: now.Add(core.NonceTTL)}))

	n, err := s.PurgeExpired(ctx, now, retention)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Take(ctx, "stale")
	assert.ErrorIs(t, err, core.ErrNoNonceFound)

	recent, err := s.Take(ctx, "recent")
	require.NoError(t, err)
	assert.True(t, recent.Expired(now))

	_, err = s.Take(ctx, "live")
	assert.NoError(t, err)
}
