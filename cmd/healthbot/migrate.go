package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/healthbot/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Run the schema migrations of the configured database. Model and alert
settings are not needed for this command.`,
		Example: `  # Migrate the database named in POSTGRES_URL
  POSTGRES_URL=postgres://localhost/healthbot healthbot migrate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if cfg.Database.Type == "memory" {
				return errors.New("the in-memory database has no schema to migrate")
			}

			db, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Running %s migrations...\n", cfg.Database.Type)

			if err := db.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Migrations completed successfully")

			return nil
		},
	}
}
