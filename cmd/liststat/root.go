package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/liststat/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for liststat.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liststat",
		Short: "Activity statistics for freelists.org mailing list archives",
		Long: `liststat reads the public archive of a freelists.org mailing list and
counts emails per month, threads per sender and active months per year.

The result is written to {list_name}.json in the current directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewStatCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the redacting logger on the command's stderr.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs = false
	}
	if jsonLogs {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}
