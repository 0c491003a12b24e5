package main

import (
	"fmt"
	"os"

	"github.com/helmcode/logmind/cmd"
	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		cmd.PrintFatal(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logmind",
		Short: "AI-assisted log and stack trace analysis",
		Long: `LogMind sends a problem description, error logs and the source code a
stack trace points at to a local or remote OpenAI-compatible model, and shows
its analysis of the root cause.

Run without a command to open the terminal UI.`,
		Args:          cobra.NoArgs,
		RunE:          cmd.RunUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddGlobalFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(
		cmd.NewAnalyzeCmd(),
		cmd.NewUICmd(),
		cmd.NewConfigCmd(),
		cmd.NewHistoryCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "logmind version %s\n", version)
		},
	}
}
