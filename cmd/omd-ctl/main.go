// Omd-ctl is a command-line client for Olympus OM-D cameras over Wi-Fi.
//
// It speaks the camera's OI.Share HTTP control protocol: it reads camera
// information, switches operating modes, lists and downloads images, reads
// and changes shooting properties, and can relay live camera notifications
// to websocket clients.
//
// Usage:
//
//	omd-ctl [command] [flags]
//
// See 'omd-ctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/omd/internal/config"
	"github.com/muurk/omd/internal/logging"
	"github.com/muurk/omd/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "omd-ctl",
	Short: "Olympus OM-D Wi-Fi Camera Client",
	Long: `A command-line client for Olympus OM-D cameras connected over Wi-Fi.

Join the camera's Wi-Fi network (or its shared network), then use the
commands below to inspect the camera, transfer images and change settings.
The camera answers at 192.168.0.10 unless configured otherwise.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("omd-ctl %s\n", version.Full())
	},
}

// setupLogging picks the log level from --log-level, then OMD_LOG_LEVEL,
// then the config file preference.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		if reg, err := config.LoadRegistry(); err == nil && reg.Preferences != nil {
			level = reg.Preferences.LogLevel
		}
	}

	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Debug("Starting", zap.String("command", cmd.CommandPath()), zap.String("build", version.UserAgentSuffix()))
	return nil
}
