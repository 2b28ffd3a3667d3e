package core

import (
	"strings"
	"time"
)

// NonceTTL is how long an issued nonce stays verifiable
const NonceTTL = 5 * time.Minute

// DefaultChainID is the network every wallet link is recorded against (BNB Smart Chain)
const DefaultChainID uint64 = 56

// Nonce represents a pending login challenge for a user
type Nonce struct {
	UserID    string    // Identity key the nonce was issued for
	Value     string    // Human readable challenge to be signed
	CreatedAt time.Time // When the nonce was issued
	ExpiresAt time.Time // When the nonce stops being verifiable
}

// Expired reports whether the nonce is past its validity window at now
func (n Nonce) Expired(now time.Time) bool {
	return now.After(n.ExpiresAt)
}

// WalletLink is a verified association between a user and a chain account
type WalletLink struct {
	Address  string    // Lower-cased account address
	LinkedAt time.Time // When the link was verified
	Verified bool      // Always true once persisted
	ChainID  uint64    // Network the link was made on
}

// User is the owner of wallet links
type User struct {
	ID      string
	Wallets []WalletLink
}

// WalletCount is derived from the link list, never stored
func (u *User) WalletCount() int {
	return len(u.Wallets)
}

// HasWallet reports whether address is already linked to the user
func (u *User) HasWallet(address string) bool {
	for _, w := range u.Wallets {
		if strings.EqualFold(w.Address, address) {
			return true
		}
	}
	return false
}

// LinkResult is returned after a successful verification
type LinkResult struct {
	UserID      string
	Address     string
	LinkedAt    time.Time
	ChainID     uint64
	WalletCount int
}

// Session represents an authenticated wallet session
type Session struct {
	ID        string    // Unique session identifier
	UserID    string    // Identity key of the user
	Address   string    // Wallet the session was established with
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session token stops being valid
}
