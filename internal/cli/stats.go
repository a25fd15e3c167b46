package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pimalab/pimadash/internal/aggregate"
)

var statsCmd = &cobra.Command{
	Use:   "stats [--format table|json|yaml|csv]",
	Short: "Print the dataset summary",
	Long: `Load the patient records and print the same summary the dashboard shows:
row count, outcome distribution, zero counts per feature, feature means and
the age distribution.

Supported formats:
  table  - Human-readable table (default)
  json   - JSON object
  yaml   - YAML document
  csv    - section,key,value rows`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return runStats(commandContext(cmd), format)
	},
}

func runStats(ctx context.Context, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := loadTable(ctx, cfg.Database)
	return outputSummary(aggregate.Summarize(table), format)
}

func outputSummary(summary aggregate.Summary, format string) error {
	if format == "" {
		format = "table"
	}

	switch format {
	case "table":
		return outputSummaryTable(summary)
	case "json":
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		fmt.Println(string(data))
		return nil
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		return enc.Close()
	case "csv":
		return outputSummaryCSV(summary)
	default:
		return fmt.Errorf("invalid format: %s (use table, json, yaml, or csv)", format)
	}
}

func outputSummaryTable(summary aggregate.Summary) error {
	fmt.Printf("Patient records: %d\n", summary.Rows)
	if summary.Rows == 0 {
		fmt.Println("No data available")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "\nOUTCOME\tCOUNT")
	for _, c := range summary.Outcome {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Category, c.Count)
	}

	_, _ = fmt.Fprintln(w, "\nFEATURE\tMEAN")
	for _, m := range summary.Means {
		_, _ = fmt.Fprintf(w, "%s\t%.2f\n", m.Column, m.Value)
	}

	_, _ = fmt.Fprintln(w, "\nFEATURE\tZEROS")
	for _, z := range summary.Zeros {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", z.Feature, z.Count)
	}

	_, _ = fmt.Fprintln(w, "\nAGE\tCOUNT")
	for _, c := range summary.AgeDistribution {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Category, c.Count)
	}

	return w.Flush()
}

func outputSummaryCSV(summary aggregate.Summary) error {
	w := csv.NewWriter(os.Stdout)

	records := [][]string{
		{"section", "key", "value"},
		{"rows", "total", strconv.Itoa(summary.Rows)},
	}
	for _, c := range summary.Outcome {
		records = append(records, []string{"outcome", c.Category, strconv.Itoa(c.Count)})
	}
	for _, m := range summary.Means {
		records = append(records, []string{"mean", m.Column, strconv.FormatFloat(m.Value, 'f', 2, 64)})
	}
	for _, z := range summary.Zeros {
		records = append(records, []string{"zeros", z.Feature, strconv.Itoa(z.Count)})
	}
	for _, c := range summary.AgeDistribution {
		records = append(records, []string{"age", c.Category, strconv.Itoa(c.Count)})
	}

	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func init() {
	statsCmd.Flags().StringP("format", "f", "table", "Output format (table, json, yaml, csv)")
	RootCmd.AddCommand(statsCmd)
}
