package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dsq",
	Short: "dsq is a Redis-backed distributed task queue",
	Long: `dsq pushes task envelopes onto Redis-backed queues, pops and
executes them in worker processes, promotes delayed/scheduled entries
into their ready queues, forwards backlog between queues, and exposes
an HTTP ingress for pushing tasks and inspecting queue state.

Configuration is read from DSQ_-prefixed environment variables plus
API_KEY and APP_ENV (see internal/config), with per-command flags
overriding the defaults.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute adds every subcommand to the root and runs it. Called once
// from main.main.
func Execute(args ...string) {
	rootCmd.SetArgs(args)
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newSchedulerCommand())
	rootCmd.AddCommand(newForwarderCommand())
	rootCmd.AddCommand(newHTTPCommand())
	rootCmd.AddCommand(newQueueCommand())
	rootCmd.AddCommand(newQueueListCommand())
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newStatCommand())
	rootCmd.AddCommand(newBenchCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1) //revive:disable-line:deep-exit
	}
}
