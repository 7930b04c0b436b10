package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/jason790/lamplighter/internal/config"
	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/notify"
	"github.com/jason790/lamplighter/internal/observer"
	"github.com/jason790/lamplighter/internal/pidfile"
	"github.com/jason790/lamplighter/internal/repository/heartbeat"
	"github.com/jason790/lamplighter/internal/repository/sqlitedb"
	"github.com/jason790/lamplighter/internal/repository/state"
	"github.com/jason790/lamplighter/internal/service/presence"
	"github.com/jason790/lamplighter/internal/service/server"
	"github.com/jason790/lamplighter/internal/version"
)

// Options controls the daemon process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// PIDFile overrides the pid file location from the settings.
	PIDFile string
	// Reload delivers reload requests (SIGHUP). Nil disables reloading.
	Reload <-chan os.Signal
	// Ready, when set, receives the monitor once everything is wired.
	Ready chan<- *presence.Monitor
}

// Run loads the settings, acquires the pid file and runs the monitor until
// ctx is canceled. A canceled ctx is a clean shutdown and returns nil.
func Run(ctx context.Context, opts *Options) (err error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lamplighter")

	// Load settings; errors here are fatal.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger.SetVerbosity(cfg.Verbosity())

	logger.WarnKV(ctx, "Lamplighter has started",
		"version", version.Short(),
		"mode", string(cfg.Mode),
		"log_level", cfg.Verbosity().String())

	pidPath := cfg.PIDFile
	if opts.PIDFile != "" {
		pidPath = opts.PIDFile
	}

	pid, err := pidfile.Acquire(ctx, pidPath)
	if err != nil {
		return fmt.Errorf("acquire pid file: %w", err)
	}

	defer func() {
		if releaseErr := pid.Release(); releaseErr != nil {
			logger.ErrorKV(ctx, "Unable to remove pid file", "path", pid.Path(), "error", releaseErr)
		}
	}()

	var closers []func() error

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = errors.Join(err, closers[i]())
		}
	}()

	store, closeStore, err := openStateStore(ctx, cfg)
	if err != nil {
		return err
	}

	closers = append(closers, closeStore)

	monitor, closeObserver, err := newMonitor(ctx, cfg, store)
	if err != nil {
		return err
	}

	closers = append(closers, closeObserver)

	if opts.Ready != nil {
		opts.Ready <- monitor
	}

	g, gctx := errgroup.WithContext(ctx)
	reload := make(chan presence.Settings)

	g.Go(func() error {
		return monitor.Run(gctx, reload)
	})

	if opts.Reload != nil {
		g.Go(func() error {
			watchReload(gctx, opts.ConfigPath, opts.Reload, reload)
			return nil
		})
	}

	if cfg.StatusAddress != "" {
		g.Go(func() error {
			return server.Run(gctx, &server.Options{
				ListenAddress: cfg.StatusAddress,
				Service:       monitor,
			})
		})
	}

	if err = g.Wait(); err != nil {
		return err
	}

	logger.Warn(ctx, "Lamplighter has stopped")

	return nil
}

// watchReload turns reload signals into settings for the monitor. Invalid
// settings are logged and the monitor keeps the previous ones.
func watchReload(ctx context.Context, path string, signals <-chan os.Signal, out chan<- presence.Settings) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
		}

		logger.Info(ctx, "Reloading configuration")

		cfg, err := config.Load(path)
		if err != nil {
			logger.ErrorKV(ctx, "Reload failed, keeping previous settings", "error", err)
			continue
		}

		logger.SetVerbosity(cfg.Verbosity())

		select {
		case <-ctx.Done():
			return
		case out <- Settings(cfg):
		}
	}
}

// Settings converts the configuration into monitor settings.
func Settings(cfg *config.Config) presence.Settings {
	return presence.Settings{
		Household:       cfg.Household,
		Subjects:        cfg.DomainSubjects(),
		QuietHours:      cfg.DomainQuietHours(),
		PollInterval:    cfg.PollInterval,
		ReportFrequency: cfg.ReportFrequency,
		Freshness:       cfg.Heartbeat.Freshness,
		Confirmation: presence.Confirmation{
			InitialDelay: cfg.Confirmation.InitialDelay,
			Samples:      cfg.Confirmation.Samples,
			SampleDelay:  cfg.Confirmation.SampleDelay,
		},
		Retry: presence.Retry{
			Initial: cfg.Confirmation.RetryInitial,
			Max:     cfg.Confirmation.RetryMax,
		},
	}
}

// openStateStore opens the configured state store and prepares its schema.
func openStateStore(ctx context.Context, cfg *config.Config) (state.Repository, func() error, error) {
	var (
		repo    state.Repository
		closeFn = func() error { return nil }
	)

	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		db, err := sqlitedb.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state database: %w", err)
		}

		repo, closeFn = state.NewSQLiteRepository(db), db.Close
	default:
		repo = state.NewFileRepository(cfg.Storage.Path)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = closeFn()

		return nil, nil, fmt.Errorf("prepare state store: %w", err)
	}

	logger.InfoKV(ctx, "State store ready", "driver", string(cfg.Storage.Driver), "path", cfg.Storage.Path)

	return repo, closeFn, nil
}

// newMonitor builds the observer of the configured mode and the monitor around it.
func newMonitor(ctx context.Context, cfg *config.Config, store state.Repository) (*presence.Monitor, func() error, error) {
	callbacks, err := newCallbacks(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []presence.Option{presence.WithCallbacks(callbacks)}

	if cfg.Mode == config.ModeHeartbeat {
		db, err := sqlitedb.Open(ctx, cfg.Heartbeat.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open heartbeat database: %w", err)
		}

		beats := heartbeat.NewStore(db)
		if err = beats.EnsureSchema(ctx); err != nil {
			_ = db.Close()

			return nil, nil, fmt.Errorf("prepare heartbeat store: %w", err)
		}

		reader := observer.NewHeartbeatObserver(beats, nil)

		return presence.NewHeartbeatMonitor(Settings(cfg), store, reader, opts...), db.Close, nil
	}

	primary := observer.NewNmapScanner(cfg.Scan.Targets,
		observer.WithNmapBinary(cfg.Scan.NmapPath),
		observer.WithNmapTimeout(cfg.Scan.Timeout))

	var scanOpts []observer.ScanOption
	if cfg.Scan.ArpScan {
		fallback := observer.NewArpScanScanner(cfg.Scan.Targets, cfg.Scan.ArpScanPath, cfg.Scan.ArpInterface, cfg.Scan.Timeout)
		scanOpts = append(scanOpts, observer.WithFallback(fallback, cfg.Scan.FallbackDelay))
	}

	counter := observer.NewScanObserver(primary, scanOpts...)

	return presence.NewScanMonitor(Settings(cfg), store, counter, opts...), func() error { return nil }, nil
}

// newCallbacks builds the notifiers named in the settings.
func newCallbacks(cfg *config.Config) (presence.Callbacks, error) {
	var notifiers notify.Multi

	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.WebhookURL, &http.Client{Timeout: cfg.Notify.Timeout}))
	}

	if cfg.Notify.Command != "" {
		cmd, err := notify.NewCommand(cfg.Notify.Command)
		if err != nil {
			return presence.Callbacks{}, fmt.Errorf("notify command: %w", err)
		}

		notifiers = append(notifiers, cmd)
	}

	if len(notifiers) == 0 {
		return presence.Callbacks{}, nil
	}

	return notify.Callbacks(notifiers, cfg.Notify.Timeout), nil
}
