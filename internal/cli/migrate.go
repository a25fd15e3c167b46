package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pimalab/pimadash/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Run the embedded migrations that create the patient table.

Only needed when pimadash owns the table. An existing table with the expected
columns works without migrations.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseURL, err := migrationURL()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(databaseURL); err != nil {
			return err
		}
		fmt.Println("✓ Migrations completed")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseURL, err := migrationURL()
		if err != nil {
			return err
		}
		if err := database.RollbackMigrations(databaseURL); err != nil {
			return err
		}
		fmt.Println("✓ Migrations reverted")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the applied and latest migration versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseURL, err := migrationURL()
		if err != nil {
			return err
		}
		current, dirty, err := migrationVersion(databaseURL)
		if err != nil {
			return err
		}
		latest, err := database.LatestMigrationVersion()
		if err != nil {
			return err
		}

		fmt.Printf("Current: v%d\n", current)
		fmt.Printf("Latest:  v%d\n", latest)
		if dirty {
			fmt.Println("State:   dirty")
		}
		return nil
	},
}

// migrationVersion is swapped in tests; golang-migrate needs a live database.
var migrationVersion = database.GetMigrationVersion

func migrationURL() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if err := cfg.Database.Validate(); err != nil {
		return "", fmt.Errorf("invalid database configuration: %w", err)
	}
	return database.DSN(cfg.Database), nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	RootCmd.AddCommand(migrateCmd)
}
