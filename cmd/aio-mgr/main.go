// Aio-mgr finds AIO devices on the local network and talks to them.
//
// It discovers devices by glob pattern, sends commands over an
// authenticated session, remembers devices by name, and can run an
// emulated device for testing.
//
// Usage:
//
//	aio-mgr [command] [flags]
//
// See 'aio-mgr --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aio-mgr/aiomgr/internal/logging"
	"github.com/aio-mgr/aiomgr/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "aio-mgr",
	Short: "AIO device manager",
	Long: `Discover AIO devices on the local network and manage command sessions.

Devices are located by broadcasting a discovery probe with a glob pattern on
each selected network interface. A session is opened with the device's token,
commands are sent one at a time, and every answer carries a status of OKAY,
ERROR or DENIED.

Logging is silent unless --log-level or AIO_LOG_LEVEL is set.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aio-mgr %s\n", version.Full())
	},
}
