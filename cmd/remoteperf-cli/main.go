package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "remoteperf-cli",
	Short: "Query and sample performance telemetry from remote devices",
	Long: `remoteperf-cli connects to Linux, Android, and QNX devices over SSH,
ADB, or a Docker exec stand-in, runs the diagnostic commands each platform
ships, and exposes one-shot queries plus periodic background sampling.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./remoteperf.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(pushCmd)
}

// Commands are defined in separate files:
// - queryCmd in query.go
// - watchCmd in watch.go
// - pullCmd, pushCmd in transfer.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
