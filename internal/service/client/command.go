package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/jason790/lamplighter/internal/config"
	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/service/common"
)

// Options configures the status query.
type Options struct {
	// ConfigPath to YAML settings file, used when Address is empty.
	ConfigPath string
	// Address overrides the status address from the settings.
	Address string
	// Timeout bounds the call; zero means common.DefaultCallTimeout.
	Timeout time.Duration
	// Out receives the snapshot as indented JSON.
	Out io.Writer
}

// ErrNoStatusAddress is returned when neither the options nor the settings name an address.
var ErrNoStatusAddress = errors.New("no status address configured")

// Run fetches the snapshot of a running daemon and prints it.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lamplighter-status")

	address := opts.Address
	if address == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		address = cfg.StatusAddress
	}

	if address == "" {
		return ErrNoStatusAddress
	}

	address = DialAddress(address)

	client, err := common.Dial(ctx, address, common.WithCallTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Requesting presence", "address", address)

	resp, err := client.GetPresence(ctx)
	if err != nil {
		return err
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}

	_, err = fmt.Fprintln(opts.Out, string(out))

	return err
}

// DialAddress turns a listen address into one a client can dial:
// an empty or unspecified host becomes localhost.
func DialAddress(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}

	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}

	return net.JoinHostPort(host, port)
}
