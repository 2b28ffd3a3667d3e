package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/layer-3/walletlink/adapters/store/postgres"
	"github.com/layer-3/walletlink/internal/config"
)

const migrateUsage = `migrate manages the walletlink database schema.

Commands:
  init    create the migration tables
  up      apply pending migrations
  down    roll back the last migration group
  status  print migration status`

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [init|up|down|status]",
		Short:     "Run database migrations",
		Long:      migrateUsage,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"init", "up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("database.dsn is required for migrations")
			}

			ctx := cmd.Context()
			db, err := postgres.Connect(ctx, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator := migrate.NewMigrator(db, postgres.Migrations)
			return runMigrations(ctx, cmd, migrator, args[0])
		},
	}
}

func runMigrations(ctx context.Context, cmd *cobra.Command, migrator *migrate.Migrator, command string) error {
	out := cmd.OutOrStdout()

	switch command {
	case "init":
		if err := migrator.Init(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "migration table created")
		return nil

	case "up":
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to release migration lock: %v\n", err)
			}
		}()

		group, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			fmt.Fprintln(out, "no new migrations to run (database is up to date)")
		} else {
			fmt.Fprintf(out, "migrated to %s\n", group)
		}
		return nil

	case "down":
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to release migration lock: %v\n", err)
			}
		}()

		group, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			fmt.Fprintln(out, "no migrations to rollback")
		} else {
			fmt.Fprintf(out, "rolled back %s\n", group)
		}
		return nil

	case "status":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "migrations: %s\n", ms)
		fmt.Fprintf(out, "unapplied migrations: %s\n", ms.Unapplied())
		fmt.Fprintf(out, "last migration group: %s\n", ms.LastGroup())
		return nil

	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}
