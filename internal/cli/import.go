package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pimalab/pimadash/internal/database"
	"github.com/pimalab/pimadash/internal/export"
)

// connectDB is swapped in tests to hand out sqlmock connections.
var connectDB = database.Connect

var importCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx>",
	Short: "Load patient records into the database",
	Long: `Insert the rows of a CSV or xlsx file into the configured table.

The first row names the columns. Every column must exist in the table. All
rows are inserted in one transaction, so a bad row leaves the table untouched.
Empty cells are stored as NULL.

Example:
  pimadash migrate up
  pimadash import diabetes.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(commandContext(cmd), args[0])
	},
}

func runImport(ctx context.Context, path string) error {
	columns, records, err := export.ReadFile(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	missing, err := database.MissingColumns(ctx, db, cfg.Database.Table, columns)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s has no column(s): %s", cfg.Database.Table, strings.Join(missing, ", "))
	}

	n, err := database.ImportRows(ctx, db, cfg.Database.Table, columns, importValues(records))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Imported %d records into %s\n", n, cfg.Database.Table)
	return nil
}

// importValues passes cells through as text for the server to cast. Blank
// cells become NULL.
func importValues(records [][]string) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, record := range records {
		row := make([]interface{}, len(record))
		for j, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				row[j] = nil
				continue
			}
			row[j] = cell
		}
		rows[i] = row
	}
	return rows
}

func init() {
	RootCmd.AddCommand(importCmd)
}
