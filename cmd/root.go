/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"os"

	"github.com/fulmenhq/sitearchive/pkg/buildinfo"
	"github.com/fulmenhq/sitearchive/pkg/config"
	"github.com/fulmenhq/sitearchive/pkg/exitcode"
	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// Tests build isolated trees through it so flag state never leaks between runs.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitearchive",
		Short: "Preserve the live website as a browsable previous version",
		Long: `Sitearchive clones the generated website, strips live-only content, rewrites
every page to live under /<previous-route>/<route>/ and records the new version
in archives.json.

Examples:
   sitearchive archive june2025 "June 1, 2025" "July 1, 2025" updates-june-2025
   sitearchive versions --format yaml
   sitearchive validate --manifest archives.json
   sitearchive version --extended`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Config file (default: ./sitearchive.yaml or $HOME/.sitearchive.yaml)")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("sitearchive {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newArchiveCommand())
	cmd.AddCommand(newVersionsCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// Execute runs the root command and exits with the code carried by the error.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitcode.FromError(err))
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "sitearchive",
	}

	if err := logger.Initialize(cfg); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
	logger.SetOutput(cmd.ErrOrStderr())
}

// loadConfig reads configuration honoring the persistent --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, exitcode.Wrap(exitcode.ConfigError, err)
	}
	return cfg, nil
}
