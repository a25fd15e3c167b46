package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var Version string

// DashboardTemplate is the page template embedded by main.
var DashboardTemplate []byte

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:   "pimadash",
	Short: "Diabetes diagnosis dashboard",
	Long: `pimadash - An interactive dashboard over the Pima Indians diabetes dataset.

pimadash loads the patient records from PostgreSQL once at startup and serves
summary cards and charts whose feature selections update in place.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Default to serve command if no subcommand provided
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runServe(commandContext(cmd))
		}
		return cmd.Help()
	},
}

// Execute is called by main
func Execute(version string, dashboardTemplate []byte) error {
	Version = version
	DashboardTemplate = dashboardTemplate

	RootCmd.Version = version

	return RootCmd.Execute()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&flagPort, "port", "", "HTTP port (default 8050)")
	flags.StringVar(&flagDatabaseURL, "database-url", "", "PostgreSQL connection URL, overrides the individual settings")
	flags.StringVar(&flagDBHost, "db-host", "", "Database host")
	flags.IntVar(&flagDBPort, "db-port", 0, "Database port")
	flags.StringVar(&flagDBUser, "db-user", "", "Database user")
	flags.StringVar(&flagDBPassword, "db-password", "", "Database password")
	flags.StringVar(&flagDBName, "db-name", "", "Database name")
	flags.StringVar(&flagDBTable, "db-table", "", "Table holding the patient records")
	flags.BoolVar(&flagPasswordPrompt, "password-prompt", false, "Prompt for the database password")

	setupSelfUpgrade()

	RootCmd.AddCommand(serveCmd)
	RootCmd.Version = Version
}
