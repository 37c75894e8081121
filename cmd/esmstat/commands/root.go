// Package commands implements CLI command handlers for esmstat.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

const (
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
)

// NewRootCommand creates the esmstat root command. Invoked without a
// subcommand it behaves like "esmstat analyze".
func NewRootCommand() *cobra.Command {
	rootAnalyze := newAnalyzeRunner()

	rootCmd := &cobra.Command{
		Use:   "esmstat [dataset]",
		Short: "Count ESM and CommonJS imports in an import classification dataset",
		Long: `esmstat reads a precomputed import classification dataset (results.json by
default) and reports how many package entry points, package deep imports and
files were imported as ES modules versus CommonJS modules.

Commands:
  analyze   Count imports and print a report
  mcp       Start the MCP server on stdio
  schema    Print the dataset JSON schema
  version   Show version information

A dataset file named like a command (mcp, schema, version) must be passed as
"esmstat analyze <path>".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          rootAnalyze.run,
	}

	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolP(flagQuiet, "q", false, "suppress all logging except errors")
	rootAnalyze.bindFlags(rootCmd)

	rootCmd.AddCommand(NewAnalyzeCommand())
	rootCmd.AddCommand(NewMCPCommand())
	rootCmd.AddCommand(NewSchemaCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// verbosityOverride reports the log level forced by -v or -q, if any.
func verbosityOverride(cmd *cobra.Command) (slog.Level, bool) {
	quiet, _ := cmd.Flags().GetBool(flagQuiet)
	if quiet {
		return slog.LevelError, true
	}

	verbose, _ := cmd.Flags().GetBool(flagVerbose)
	if verbose {
		return slog.LevelDebug, true
	}

	return 0, false
}
