package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jason790/lamplighter/internal/service/client"
	"github.com/jason790/lamplighter/internal/service/common"
)

var (
	// statusTimeout bounds the status call.
	statusTimeout time.Duration

	// statusCmd prints the snapshot of a running daemon.
	statusCmd = &cobra.Command{
		Use:   "status [address]",
		Short: "Print the presence snapshot of a running daemon.",
		Long: `Queries the status API of a running daemon and prints the latest snapshot
as JSON: the state of every subject, the combined state, the quiet hours flag
and the loop counters.

The address defaults to status_addr from the configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var address string
			if len(args) > 0 {
				address = args[0]
			}

			return client.Run(ctx, &client.Options{
				ConfigPath: configPath,
				Address:    address,
				Timeout:    statusTimeout,
				Out:        cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().DurationVarP(&statusTimeout, "timeout", "t", common.DefaultCallTimeout, "status call timeout")
}
