// Package postgres persists nonces and wallet links in PostgreSQL using bun.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/internal/eth"
	"github.com/layer-3/walletlink/internal/metrics"
	"github.com/layer-3/walletlink/ports"
)

// Connect opens a bun database for dsn and checks it is reachable
func Connect(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Store implements both NonceStore and UserStore on top of PostgreSQL
type Store struct {
	db bun.IDB
}

var (
	_ ports.NonceStore = (*Store)(nil)
	_ ports.UserStore  = (*Store)(nil)
)

// NewStore creates a new postgres store
func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

func (s *Store) Put(ctx context.Context, nonce core.Nonce) error {
	_, err := s.db.NewInsert().
		Model(toNonceDao(nonce)).
		On("CONFLICT (user_id) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("created_at = EXCLUDED.created_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	return nil
}

// Take deletes the row and returns it in one statement
func (s *Store) Take(ctx context.Context, userID string) (core.Nonce, error) {
	dao := new(NonceDao)
	err := s.db.NewDelete().
		Model(dao).
		Where("user_id = ?", userID).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Nonce{}, core.ErrNoNonceFound
		}
		return core.Nonce{}, fmt.Errorf("failed to take nonce: %w", err)
	}
	return toNonce(dao), nil
}

// PurgeExpired deletes nonces that expired more than retention before now
func (s *Store) PurgeExpired(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	res, err := s.db.NewDelete().
		Model((*NonceDao)(nil)).
		Where("expires_at < ?", now.Add(-retention)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge nonces: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged nonces: %w", err)
	}
	return int(n), nil
}

// RunJanitor purges expired nonces every interval until ctx is done
func (s *Store) RunJanitor(ctx context.Context, logger *zap.Logger, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.PurgeExpired(ctx, now, retention)
			if err != nil {
				logger.Warn("nonce purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				metrics.NoncesPurged.Add(float64(n))
			}
		}
	}
}

func (s *Store) AddWalletLink(ctx context.Context, userID string, link core.WalletLink) (*core.User, error) {
	link.Address = eth.NormalizeAddress(link.Address)

	var user *core.User
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(toWalletLinkDao(userID, link)).
			On("CONFLICT (user_id, address) DO UPDATE").
			Set("linked_at = EXCLUDED.linked_at").
			Set("chain_id = EXCLUDED.chain_id").
			Set("verified = EXCLUDED.verified").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert wallet link: %w", err)
		}

		user, err = getUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*core.User, error) {
	return getUser(ctx, s.db, userID)
}

func getUser(ctx context.Context, db bun.IDB, userID string) (*core.User, error) {
	var daos []WalletLinkDao
	err := db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("linked_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet links: %w", err)
	}
	if len(daos) == 0 {
		return nil, core.ErrUserNotFound
	}

	user := &core.User{ID: userID, Wallets: make([]core.WalletLink, len(daos))}
	for i := range daos {
		user.Wallets[i] = toWalletLink(&daos[i])
	}
	return user, nil
}
