package connect

import (
	"context"
	"errors"
)

// Errors a Provider reports for conditions the connector distinguishes
var (
	ErrUserRejected = errors.New("user rejected the request")
	ErrWalletLocked = errors.New("wallet is locked")
)

// Provider is a wallet reachable from the client
type Provider interface {
	// RequestAccounts asks the wallet for account access. It may block on user approval.
	RequestAccounts(ctx context.Context) ([]string, error)

	// ChainID returns the network the wallet is currently on
	ChainID(ctx context.Context) (uint64, error)

	// PersonalSign signs message with address using the personal message scheme
	PersonalSign(ctx context.Context, address, message string) (string, error)
}

// Connection is a live wallet handle. It is never persisted.
type Connection struct {
	Strategy Strategy
	Address  string
	ChainID  uint64
	Provider Provider
}

// Sign asks the connected wallet to sign message
func (c *Connection) Sign(ctx context.Context, message string) (string, error) {
	return c.Provider.PersonalSign(ctx, c.Address, message)
}

// ProviderEventKind distinguishes provider notifications
type ProviderEventKind int

const (
	AccountsChanged ProviderEventKind = iota
	ChainChanged
)

// ProviderEvent is an account or network change reported by the wallet
type ProviderEvent struct {
	Kind     ProviderEventKind
	Accounts []string
	ChainID  uint64
}
