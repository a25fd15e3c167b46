package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/pimalab/pimadash/internal/config"
	"github.com/pimalab/pimadash/internal/database"
)

const doctorTimeout = 30 * time.Second

// openDB is swapped in tests to hand out sqlmock connections.
var openDB = database.Open

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the pimadash setup",
	Long: `Run health checks on the pimadash setup.

Checks performed:
  - Database settings present
  - Database connection
  - PostgreSQL version
  - Required columns exist in the patient table
  - Patient table has records
  - Database migrations

Example:
  pimadash doctor
  pimadash doctor --json`,
	RunE: runDoctor,
}

type CheckResult struct {
	Name       string `json:"name"`
	Pass       bool   `json:"pass"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

func checkConfiguration(cfg *config.Config) CheckResult {
	if err := cfg.Database.Validate(); err != nil {
		return CheckResult{
			Name:       "Database Settings",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Set DB_USER and DB_PASSWORD, or DATABASE_URL",
		}
	}
	return CheckResult{Name: "Database Settings", Pass: true, Details: cfg.Database.Table}
}

func checkDatabaseConnection(ctx context.Context, db *sqlx.DB) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return CheckResult{
			Name:       "Database Connection",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify the DB_* settings and ensure PostgreSQL is running",
		}
	}
	return CheckResult{Name: "Database Connection", Pass: true}
}

func checkPostgreSQLVersion(ctx context.Context, db *sqlx.DB) CheckResult {
	var version string
	if err := db.GetContext(ctx, &version, "SHOW server_version"); err != nil {
		return CheckResult{Name: "PostgreSQL Version", Pass: false, Error: err.Error()}
	}

	// e.g. "17.1 (Debian 17.1-1)"
	if fields := strings.Fields(version); len(fields) > 0 {
		version = fields[0]
	}
	return CheckResult{Name: "PostgreSQL Version", Pass: true, Details: version}
}

func checkRequiredColumns(ctx context.Context, db *sqlx.DB, table string) CheckResult {
	missing, err := database.MissingColumns(ctx, db, table, database.RequiredColumns)
	if err != nil {
		return CheckResult{Name: "Required Columns", Pass: false, Error: err.Error()}
	}
	if len(missing) > 0 {
		return CheckResult{
			Name:       "Required Columns",
			Pass:       false,
			Error:      "missing " + strings.Join(missing, ", "),
			Suggestion: "Create the table with: pimadash migrate up",
		}
	}
	return CheckResult{Name: "Required Columns", Pass: true}
}

func checkPatientRecords(ctx context.Context, db *sqlx.DB, table string) CheckResult {
	count, err := database.CountRows(ctx, db, table)
	if err != nil {
		return CheckResult{Name: "Patient Records", Pass: false, Error: err.Error()}
	}
	if count == 0 {
		return CheckResult{
			Name:       "Patient Records",
			Pass:       false,
			Error:      fmt.Sprintf("table %s is empty", table),
			Suggestion: "Load records with: pimadash import <file.csv>",
		}
	}
	return CheckResult{Name: "Patient Records", Pass: true, Details: fmt.Sprintf("%d rows", count)}
}

func checkMigrations(cfg *config.Config) CheckResult {
	version, dirty, err := migrationVersion(database.DSN(cfg.Database))
	if err != nil {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Run migrations with: pimadash migrate up",
		}
	}

	if dirty {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      "Migration state is dirty",
			Suggestion: "Fix dirty migration state, may need manual intervention",
		}
	}

	// A table created outside pimadash has no migration history.
	if version == 0 {
		return CheckResult{Name: "Database Migrations", Pass: true, Details: "not managed"}
	}

	latest, err := database.LatestMigrationVersion()
	if err != nil {
		return CheckResult{Name: "Database Migrations", Pass: false, Error: err.Error()}
	}
	if version != latest {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      fmt.Sprintf("Migration version %d, expected %d", version, latest),
			Suggestion: "Run migrations with: pimadash migrate up",
		}
	}

	return CheckResult{Name: "Database Migrations", Pass: true, Details: fmt.Sprintf("v%d", version)}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("✗ Configuration Error: %v\n", err)
		return err
	}

	results := doctorChecks(commandContext(cmd), cfg)

	if jsonOutput {
		outputDoctorJSON(results)
	} else {
		outputDoctorHuman(results)
	}

	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

// doctorChecks stops after the first check the rest depend on fails.
func doctorChecks(ctx context.Context, cfg *config.Config) []CheckResult {
	results := []CheckResult{checkConfiguration(cfg)}
	if !results[0].Pass {
		return results
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return append(results, CheckResult{
			Name:       "Database Connection",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL is valid",
		})
	}
	defer func() { _ = db.Close() }()

	conn := checkDatabaseConnection(ctx, db)
	results = append(results, conn)
	if !conn.Pass {
		return results
	}

	table := cfg.Database.Table
	results = append(results, checkPostgreSQLVersion(ctx, db))
	results = append(results, checkRequiredColumns(ctx, db, table))
	results = append(results, checkPatientRecords(ctx, db, table))
	results = append(results, checkMigrations(cfg))
	return results
}

func outputDoctorHuman(results []CheckResult) {
	fmt.Println("\npimadash Health Check")

	for _, r := range results {
		icon := "✓"
		if !r.Pass {
			icon = "✗"
		}

		fmt.Printf("%s %s", icon, r.Name)
		if r.Details != "" {
			fmt.Printf(" (%s)", r.Details)
		}
		fmt.Println()

		if !r.Pass {
			if r.Error != "" {
				fmt.Printf("  Error: %s\n", r.Error)
			}
			if r.Suggestion != "" {
				fmt.Printf("  Hint: %s\n", r.Suggestion)
			}
		}
	}

	// Summary
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}

	fmt.Printf("\n%d/%d checks passed\n\n", passed, len(results))
}

func outputDoctorJSON(results []CheckResult) {
	data, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(data))
}

func init() {
	doctorCmd.Flags().Bool("json", false, "Output results as JSON")
	RootCmd.AddCommand(doctorCmd)
}
