// Package walletlink is the client side of the wallet linking API.
package walletlink

import (
	"context"
	"time"
)

// Client represents the public interface for interacting with the wallet linking service
type Client interface {
	// Nonce requests a fresh login nonce for uid, invalidating any earlier one
	Nonce(ctx context.Context, uid string) (*NonceResponse, error)

	// VerifyWallet submits the personal_sign signature of the nonce by address
	VerifyWallet(ctx context.Context, req VerifyWalletRequest) (*VerifyWalletResponse, error)

	// Wallets lists the wallets linked to the user owning the session token
	Wallets(ctx context.Context, token string) (*WalletsResponse, error)
}

// NonceResponse is returned by GET /api/auth/nonce
type NonceResponse struct {
	Success   bool   `json:"success"`
	Nonce     string `json:"nonce"`
	ExpiresIn int64  `json:"expiresIn"` // milliseconds
}

// TTL returns ExpiresIn as a duration
func (r *NonceResponse) TTL() time.Duration {
	return time.Duration(r.ExpiresIn) * time.Millisecond
}

// VerifyWalletRequest is the body of POST /api/auth/verify-wallet
type VerifyWalletRequest struct {
	UID       string `json:"uid"`
	Address   string `json:"address"`
	Signature string `json:"signature"`
	// Nonce optionally echoes the signed nonce so a superseded one is
	// reported as missing rather than as a signature mismatch
	Nonce string `json:"nonce,omitempty"`
}

// Wallet is a linked wallet as exposed over HTTP
type Wallet struct {
	Address  string    `json:"address"`
	LinkedAt time.Time `json:"linkedAt"`
	ChainID  uint64    `json:"chainId,omitempty"`
}

// VerifyWalletResponse is returned by a successful verification
type VerifyWalletResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Wallet      Wallet `json:"wallet"`
	WalletCount int    `json:"walletCount"`
	Token       string `json:"token,omitempty"`
}

// WalletsResponse is returned by GET /api/auth/wallets
type WalletsResponse struct {
	Success     bool     `json:"success"`
	UID         string   `json:"uid"`
	Wallets     []Wallet `json:"wallets"`
	WalletCount int      `json:"walletCount"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
