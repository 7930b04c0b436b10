package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jason790/lamplighter/internal/config"
	"github.com/jason790/lamplighter/internal/service/daemon"
	"github.com/jason790/lamplighter/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// pidFile overrides the pid file location from the settings.
	pidFile string

	// rootCmd runs the presence daemon.
	rootCmd = &cobra.Command{
		Use:   "lamplighter",
		Short: "Track who is home and react when it changes.",
		Long: `Runs the presence daemon.

In scan mode the local network is swept for the configured devices; the
household turns home as soon as one is seen and away only after repeated
sweeps agree that nobody is left. In heartbeat mode every subject is tracked
by the age of its last heartbeat (see "lamplighter beat").

Transitions are persisted and reported to the configured webhook or command.
SIGHUP reloads the settings, SIGTERM and SIGINT stop the daemon.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// SIGHUP reloads the settings between polling cycles.
			reload := make(chan os.Signal, 1)
			signal.Notify(reload, syscall.SIGHUP)

			defer signal.Stop(reload)

			return daemon.Run(ctx, &daemon.Options{
				ConfigPath: configPath,
				PIDFile:    pidFile,
				Reload:     reload,
			})
		},
	}
)

// Execute runs the lamplighter CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&pidFile, "pid-file", "p", "", "override the pid file location")

	rootCmd.AddCommand(statusCmd, beatCmd)
}
