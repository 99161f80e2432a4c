package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/config"
	"github.com/Veraticus/eling/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the ledger schema to the latest version.

Every command migrates the ledger before using it, so this is only needed to
prepare a database ahead of time or to check its version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dbPath := config.DatabasePath(viper.GetViper())

			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if status {
				current, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Database: %s\n", dbPath)
				fmt.Fprintf(out, "Schema version: %d (latest %d)\n", current, storage.ExpectedSchemaVersion)
				pending, err := store.PendingMigrations(ctx)
				if err != nil {
					return err
				}
				for _, m := range pending {
					fmt.Fprintf(out, "  pending %d: %s\n", m.Version, m.Description)
				}
				if len(pending) > 0 {
					fmt.Fprintln(out, cli.FormatInfo("Run 'eling migrate' to upgrade"))
				}
				return nil
			}

			slog.Info("running database migrations", "database", dbPath)
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Ledger schema is at version %d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show current schema version without applying changes")

	return cmd
}
