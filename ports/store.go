package ports

import (
	"context"

	"github.com/layer-3/walletlink/core"
)

// NonceStore keeps at most one pending nonce per user
type NonceStore interface {
	// Put stores the nonce, replacing any nonce already held for the same user
	Put(ctx context.Context, nonce core.Nonce) error

	// Take atomically removes and returns the nonce held for userID.
	// It returns core.ErrNoNonceFound when nothing is held.
	Take(ctx context.Context, userID string) (core.Nonce, error)
}

// UserStore persists wallet links on user records
type UserStore interface {
	// AddWalletLink merges link into the user's wallet list. Linking an address
	// that is already present refreshes it instead of adding a duplicate.
	AddWalletLink(ctx context.Context, userID string, link core.WalletLink) (*core.User, error)

	// GetUser returns the user with its wallet links, or core.ErrUserNotFound
	GetUser(ctx context.Context, userID string) (*core.User, error)
}
