package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// RequiredColumns are the columns the dashboard reads by name.
var RequiredColumns = []string{
	"PatientID",
	"Pregnancies",
	"Glucose",
	"BloodPressure",
	"Insulin",
	"BMI",
	"Age",
	"Outcome",
}

// MissingColumns reports which of the wanted columns the table lacks.
func MissingColumns(ctx context.Context, db *sqlx.DB, table string, wanted []string) ([]string, error) {
	schema, name := splitTable(table)

	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1 AND column_name = ANY($2)`
	args := []interface{}{name, pq.Array(wanted)}
	if schema != "" {
		query += ` AND table_schema = $3`
		args = append(args, schema)
	}

	var found []string
	if err := db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}

	present := make(map[string]bool, len(found))
	for _, column := range found {
		present[column] = true
	}

	var missing []string
	for _, column := range wanted {
		if !present[column] {
			missing = append(missing, column)
		}
	}
	return missing, nil
}

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, db *sqlx.DB, table string) (int64, error) {
	var count int64
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+QuoteTable(table)); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}
