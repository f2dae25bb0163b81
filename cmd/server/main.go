package main

import (
	"fmt"
	"os"

	"classteamup/internal/logger"

	"github.com/spf13/cobra"
)

var logOpts logger.Options

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "classteamup",
	Short: "ClassTeamUp authentication and routing server",
	Long: `Serves the ClassTeamUp sign-up, sign-in, password recovery and
profile endpoints, and guards page routes by session and role.

Subcommands:
- serve: run the HTTP server (default)
- migrate: apply the database schema and exit`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logOpts)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	defer logger.Sync()

	rootCmd.PersistentFlags().BoolVar(&logOpts.Development, "development", false, "Enable development logging and log full email links at debug level")
	rootCmd.PersistentFlags().StringVar(&logOpts.Level, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logOpts.Format, "log-format", "json", "Log format (json, console)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())

	return rootCmd.Execute()
}
