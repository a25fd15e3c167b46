package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pimalab/pimadash/internal/aggregate"
	"github.com/pimalab/pimadash/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [--out file.xlsx]",
	Short: "Write the records and summary to an Excel workbook",
	Long: `Load the patient records and write them, together with the summary
sheets, to an xlsx workbook.

Example:
  pimadash export --out pima.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		return runExport(commandContext(cmd), out)
	},
}

func runExport(ctx context.Context, out string) error {
	if out == "" {
		return errors.New("--out is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := loadTable(ctx, cfg.Database)
	if table.IsEmpty() {
		return errors.New("no patient records loaded, check the database settings")
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}

	if err := export.Write(f, table, aggregate.Summarize(table)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", out, err)
	}

	fmt.Printf("✓ Exported %d records to %s\n", table.Len(), out)
	return nil
}

func init() {
	exportCmd.Flags().StringP("out", "o", "pima-diabetes.xlsx", "Output file")
	RootCmd.AddCommand(exportCmd)
}
