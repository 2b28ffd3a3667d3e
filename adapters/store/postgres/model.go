package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/layer-3/walletlink/core"
)

// NonceDao maps to the 'pending_nonces' table. One row per user.
type NonceDao struct {
	bun.BaseModel `bun:"table:pending_nonces,alias:pn"`
	UserID        string    `bun:"user_id,pk,type:varchar(128)"`
	Value         string    `bun:"value,notnull,type:varchar(255)"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	ExpiresAt     time.Time `bun:"expires_at,notnull"`
}

// WalletLinkDao maps to the 'wallet_links' table
type WalletLinkDao struct {
	bun.BaseModel `bun:"table:wallet_links,alias:wl"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        string    `bun:"user_id,notnull,unique:wallet_links_user_address,type:varchar(128)"`
	Address       string    `bun:"address,notnull,unique:wallet_links_user_address,type:varchar(42)"`
	ChainID       int64     `bun:"chain_id,notnull"`
	Verified      bool      `bun:"verified,notnull"`
	LinkedAt      time.Time `bun:"linked_at,notnull"`
}

func toNonceDao(n core.Nonce) *NonceDao {
	return &NonceDao{
		UserID:    n.UserID,
		Value:     n.Value,
		CreatedAt: n.CreatedAt.UTC(),
		ExpiresAt: n.ExpiresAt.UTC(),
	}
}

func toNonce(dao *NonceDao) core.Nonce {
	return core.Nonce{
		UserID:    dao.UserID,
		Value:     dao.Value,
		CreatedAt: dao.CreatedAt,
		ExpiresAt: dao.ExpiresAt,
	}
}

func toWalletLinkDao(userID string, link core.WalletLink) *WalletLinkDao {
	return &WalletLinkDao{
		UserID:   userID,
		Address:  link.Address,
		ChainID:  int64(link.ChainID),
		Verified: link.Verified,
		LinkedAt: link.LinkedAt.UTC(),
	}
}

func toWalletLink(dao *WalletLinkDao) core.WalletLink {
	return core.WalletLink{
		Address:  dao.Address,
		LinkedAt: dao.LinkedAt,
		Verified: dao.Verified,
		ChainID:  uint64(dao.ChainID),
	}
}
