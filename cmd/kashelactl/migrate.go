package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"kashela/internal/storage"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := a.v.GetString("database.path")
			version, err := storage.RunMigrations(dbPath)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", dbPath, err)
			}
			slog.Info("Migrations applied", "database", dbPath, "version", version)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"database": dbPath,
				"version":  version,
			})
		},
	}
}
