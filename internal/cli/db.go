package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/issuepilot/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Event database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the event database (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database reset")
		return nil
	},
}

func openDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return db.Open(path)
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}
