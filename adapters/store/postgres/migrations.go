package postgres

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the schema migrations for the walletlink database
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return CreateSchema(ctx, db)
	}, func(ctx context.Context, db *bun.DB) error {
		return DropSchema(ctx, db)
	})
}

// CreateSchema creates the pending_nonces and wallet_links tables
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range []any{(*NonceDao)(nil), (*WalletLinkDao)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	_, err := db.NewCreateIndex().
		Model((*WalletLinkDao)(nil)).
		Index("idx_wallet_links_user_id").
		Column("user_id").
		IfNotExists().
		Exec(ctx)
	return err
}

// DropSchema drops every table created by CreateSchema
func DropSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range []any{(*WalletLinkDao)(nil), (*NonceDao)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
