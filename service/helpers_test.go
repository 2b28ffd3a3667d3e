package service

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletlink/core"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

type mockNonceStore struct {
	mock.Mock
}

func (m *mockNonceStore) Put(ctx context.Context, nonce core.Nonce) error {
	return m.Called(ctx, nonce).Error(0)
}

func (m *mockNonceStore) Take(ctx context.Context, userID string) (core.Nonce, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(core.Nonce), args.Error(1)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) AddWalletLink(ctx context.Context, userID string, link core.WalletLink) (*core.User, error) {
	args := m.Called(ctx, userID, link)
	user, _ := args.Get(0).(*core.User)
	return user, args.Error(1)
}

func (m *mockUserStore) GetUser(ctx context.Context, userID string) (*core.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*core.User)
	return user, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWalletLinked(ctx context.Context, result *core.LinkResult) error {
	return m.Called(ctx, result).Error(0)
}
