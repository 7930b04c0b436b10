package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jason790/lamplighter/internal/service/beat"
)

var (
	// beatDatabase overrides the heartbeat database from the settings.
	beatDatabase string

	// beatCmd records a heartbeat.
	beatCmd = &cobra.Command{
		Use:   "beat [key]",
		Short: "Record a heartbeat for the heartbeat mode.",
		Long: `Records that key is alive right now. Run it periodically from a device
or a login session; the daemon counts a subject as home while its last
heartbeat is fresher than heartbeat.freshness.

The key defaults to the current user name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var key string
			if len(args) > 0 {
				key = args[0]
			}

			return beat.Run(ctx, &beat.Options{
				ConfigPath: configPath,
				Database:   beatDatabase,
				Key:        key,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	beatCmd.Flags().StringVarP(&beatDatabase, "database", "d", "", "heartbeat database (defaults to heartbeat.database)")
}
