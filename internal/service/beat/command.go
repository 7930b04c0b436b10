// Package beat records heartbeats for the heartbeat mode.
package beat

import (
	"context"
	"fmt"
	"time"

	"github.com/jason790/lamplighter/internal/config"
	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/repository/heartbeat"
	"github.com/jason790/lamplighter/internal/repository/sqlitedb"
	"github.com/jason790/lamplighter/internal/service/common"
)

// Options configures a heartbeat write.
type Options struct {
	// ConfigPath to YAML settings file, used when Database is empty.
	ConfigPath string
	// Database overrides the heartbeat database from the settings.
	Database string
	// Key is the heartbeat key; empty means the current user name.
	Key string
	// Now overrides the recorded time; nil means time.Now.
	Now func() time.Time
}

// Run records one heartbeat.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lamplighter-beat")

	database := opts.Database
	if database == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		database = cfg.Heartbeat.Database
	}

	key := opts.Key
	if key == "" {
		var err error

		if key, err = common.DetectHeartbeatKey(); err != nil {
			return fmt.Errorf("detect heartbeat key: %w", err)
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	db, err := sqlitedb.Open(ctx, database)
	if err != nil {
		return fmt.Errorf("open heartbeat database: %w", err)
	}

	defer func() {
		_ = db.Close()
	}()

	store := heartbeat.NewStore(db)
	if err = store.EnsureSchema(ctx); err != nil {
		return err
	}

	at := now()
	if err = store.Beat(ctx, key, at); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Heartbeat recorded", "key", key, "at", at.Format(time.RFC3339))

	return nil
}
