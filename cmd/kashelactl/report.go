package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kashela/internal/report"
	"kashela/internal/storage"
	"kashela/internal/store"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		userID      string
		year, month int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a user's monthly report from the SQLite store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			now := time.Now().UTC()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month %d", month)
			}

			repo, err := storage.NewSQLiteRepository(a.v.GetString("database.path"))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer repo.Close()

			stored, err := repo.ListTransactions(cmd.Context(), userID, store.ListFilter{Year: year, Month: month})
			if err != nil {
				return fmt.Errorf("list transactions: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report.Monthly(year, month, report.Records(stored)))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to report on")
	cmd.Flags().IntVar(&year, "year", 0, "report year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "report month 1-12 (default: current)")
	return cmd
}
