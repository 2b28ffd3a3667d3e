package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/internal/eth"
	"github.com/layer-3/walletlink/internal/metrics"
	"github.com/layer-3/walletlink/ports"
)

// MemoryNonceStore is an in-memory implementation of the NonceStore interface
type MemoryNonceStore struct {
	nonces map[string]core.Nonce
	mu     sync.Mutex
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)

// NewMemoryNonceStore creates a new in-memory nonce store
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		nonces: make(map[string]core.Nonce),
	}
}

// Put stores the nonce, replacing the previous one for the user
func (s *MemoryNonceStore) Put(ctx context.Context, nonce core.Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[nonce.UserID] = nonce
	return nil
}

// Take removes and returns the nonce for userID under a single lock
func (s *MemoryNonceStore) Take(ctx context.Context, userID string) (core.Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, ok := s.nonces[userID]
	if !ok {
		return core.Nonce{}, core.ErrNoNonceFound
	}
	delete(s.nonces, userID)

	return nonce, nil
}

// Len returns the number of pending nonces
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nonces)
}

// PurgeExpired drops nonces that expired more than retention before now and
// returns how many were removed. Recently expired nonces are kept so that a
// late verification still reports expiry instead of a missing nonce.
func (s *MemoryNonceStore) PurgeExpired(now time.Time, retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, nonce := range s.nonces {
		if now.After(nonce.ExpiresAt.Add(retention)) {
			delete(s.nonces, userID)
			removed++
		}
	}
	return removed
}

// RunJanitor purges expired nonces every interval until ctx is done
func (s *MemoryNonceStore) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.PurgeExpired(now, retention); n > 0 {
				metrics.NoncesPurged.Add(float64(n))
			}
		}
	}
}

// MemoryUserStore is an in-memory implementation of the UserStore interface
type MemoryUserStore struct {
	users map[string]*core.User
	mu    sync.RWMutex
}

var _ ports.UserStore = (*MemoryUserStore)(nil)

// NewMemoryUserStore creates a new in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*core.User),
	}
}

// AddWalletLink merges the link into the user's wallet list
func (s *MemoryUserStore) AddWalletLink(ctx context.Context, userID string, link core.WalletLink) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link.Address = eth.NormalizeAddress(link.Address)

	user, ok := s.users[userID]
	if !ok {
		user = &core.User{ID: userID}
		s.users[userID] = user
	}

	replaced := false
	for i := range user.Wallets {
		if user.Wallets[i].Address == link.Address {
			user.Wallets[i] = link
			replaced = true
			break
		}
	}
	if !replaced {
		user.Wallets = append(user.Wallets, link)
	}

	return copyUser(user), nil
}

// GetUser returns a copy of the stored user
func (s *MemoryUserStore) GetUser(ctx context.Context, userID string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return copyUser(user), nil
}

func copyUser(u *core.User) *core.User {
	wallets := make([]core.WalletLink, len(u.Wallets))
	copy(wallets, u.Wallets)
	return &core.User{ID: u.ID, Wallets: wallets}
}
