package commands

import (
	"os"

	"github.com/holos-run/gamescout/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel   string
	logFormat  string
	configPath string
)

// NewRootCmd creates the root command for gamescout.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gamescout",
		Short: "Gamescout - cached game discovery backed by IGDB",
		Long: `Gamescout serves game recommendations and keyword lookups backed by the
IGDB API. It keeps the complete keyword catalog in memory, refreshing it
from the upstream at most once per TTL, and caches game search results.

Credentials are read from IGDB_CLIENT_ID and IGDB_CLIENT_SECRET or from the
upstream section of the --config file.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging before any command runs
			cfg := logging.Config{
				Level:  logging.ParseLevel(logLevel),
				Format: logFormat,
				Output: cmd.ErrOrStderr(),
			}
			logging.SetDefault(cfg)
		},
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We'll handle errors ourselves
	}

	// Global flags available to all commands
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "json",
		"Log format (json, text)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")

	// Add subcommands
	cmd.AddCommand(NewVersionCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewKeywordsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
