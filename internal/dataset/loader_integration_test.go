//go:build integration

package dataset_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimalab/pimadash/internal/aggregate"
	"github.com/pimalab/pimadash/internal/config"
	"github.com/pimalab/pimadash/internal/database"
	"github.com/pimalab/pimadash/internal/dataset"
	"github.com/pimalab/pimadash/internal/test"
)

func TestLoaderReadsMigratedTable(t *testing.T) {
	ctx := context.Background()
	tdb := test.NewTestDB(t)

	tdb.SeedPatients(ctx, t,
		[]string{"Pregnancies", "Glucose", "BloodPressure", "SkinThickness", "Insulin", "BMI", "DiabetesPedigreeFunction", "Age", "Outcome"},
		[][]interface{}{
			{6, 148, 72, 35, 0, 33.6, 0.627, 50, 1},
			{1, 85, 66, 29, 0, 26.6, 0.351, 31, 0},
			{8, 183, 64, 0, 0, 23.3, 0.672, 32, 1},
		},
	)

	count, err := database.CountRows(ctx, tdb.DB, "diabetes")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	missing, err := database.MissingColumns(ctx, tdb.DB, "diabetes", database.RequiredColumns)
	require.NoError(t, err)
	assert.Empty(t, missing)

	cfg := config.Database{URL: "postgres://ignored", Table: "diabetes", Driver: config.DriverPgx}
	loader := dataset.NewLoader(cfg, dataset.WithOpener(func(string, string) (*sqlx.DB, error) {
		return tdb.DB, nil
	}))

	table := loader.Load(ctx)
	require.Equal(t, 3, table.Len())
	assert.True(t, table.IsNumeric(dataset.ColumnBMI), "NUMERIC columns load as numbers")

	summary := aggregate.Summarize(table)
	require.Len(t, summary.Outcome, 2)
	assert.Equal(t, aggregate.Count{Category: "1", Count: 2}, summary.Outcome[0])
}
