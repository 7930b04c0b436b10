package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/jason790/lamplighter/internal/api/grpc/presence"
	"github.com/jason790/lamplighter/internal/logger"
)

// Options controls the status server.
type Options struct {
	// ListenAddress is the host:port to listen on.
	ListenAddress string
	// Listener, when set, is used instead of listening on ListenAddress.
	Listener net.Listener
	// Service provides the snapshots served by the API.
	Service api.Service
}

var (
	// ErrNoListenAddress indicates missing server configuration.
	ErrNoListenAddress = errors.New("no listen address configured")
	// errNoService is returned when Options carry no snapshot source.
	errNoService = errors.New("no service configured")
)

// Run serves the status API and blocks until ctx is canceled or serving fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "status-server")

	if opts.Service == nil {
		return errNoService
	}

	lis := opts.Listener
	if lis == nil {
		if opts.ListenAddress == "" {
			return ErrNoListenAddress
		}

		lc := net.ListenConfig{}

		var err error

		lis, err = lc.Listen(ctx, "tcp", opts.ListenAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", opts.ListenAddress, err)
		}
	}

	grpcServer := grpc.NewServer()
	api.Register(grpcServer, api.NewServer(opts.Service))

	logger.InfoKV(ctx, "Status API listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}
