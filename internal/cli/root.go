// Package cli wires the command tree: the monitor itself plus offline
// helpers for the target store, the history database and the config.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doridoridoriand/fastping/internal/config"
	"github.com/doridoridoriand/fastping/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// NewRootCommand builds the command tree. Running the root without a
// subcommand starts the monitor.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "fastping",
		Short: "Continuous ping monitor for a list of targets",
		Long: `fastping runs the system ping command against every target in its store
and prints live latency, packet loss over each 40 probes and average latency
over each 20 replies.

While running, type "add <target>", "remove <target>", "list" or "quit".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, stdin)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	addGlobalFlags(root.PersistentFlags())
	addRunFlags(root.Flags())

	root.AddCommand(
		newRunCommand(stdin),
		newTargetsCommand(),
		newHistoryCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI against the process's standard streams and exits
// non-zero on error.
func Execute() {
	root := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fastping version %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// loadConfig resolves the effective configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	return config.Load(path, buildOverrides(cmd.Flags()))
}

// newLogger builds the process logger. Logs go to stderr so that stdout
// carries only event lines and command output.
func newLogger(cfg *config.Config, stderr io.Writer) *log.Logger {
	logger := log.NewLogger(log.ParseLevel(cfg.Log.Level))
	logger.SetOutput(stderr)
	logger.SetFormat(log.Format(cfg.Log.Format))
	return logger
}
