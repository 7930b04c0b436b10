package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jason790/lamplighter/internal/logger"
)

func scanConfig() *Config {
	return &Config{
		Mode: ModeScan,
		Subjects: []Subject{
			{Alias: "aaron", Device: "AA:BB:CC:DD:EE:01"},
			{Alias: "veronica", Device: "AA:BB:CC:DD:EE:02"},
		},
		Scan: ScanConfig{Targets: []string{"192.168.10.0/24"}},
	}
}

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// No subjects.
	err := Validate(new(Config))
	require.ErrorIs(t, err, ErrInvalid)

	// Scan mode needs devices.
	cfg := scanConfig()
	cfg.Subjects[1].Device = ""
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	// Scan mode needs targets.
	cfg = scanConfig()
	cfg.Scan.Targets = nil
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	// Duplicate aliases.
	cfg = scanConfig()
	cfg.Subjects[1].Alias = "aaron"
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	// Quiet hours out of range.
	cfg = scanConfig()
	cfg.QuietHours = QuietHours{Start: 25}
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	// Unknown log level.
	cfg = scanConfig()
	cfg.LogLevel = "LOG_CHATTY"
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	// Heartbeat mode needs a database but no devices.
	cfg = &Config{Mode: ModeHeartbeat, Subjects: []Subject{{Alias: "aaron"}}}
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	cfg.Heartbeat.Database = "heartbeat.db"
	require.NoError(t, Validate(cfg))

	// Bad status address and webhook.
	cfg = scanConfig()
	cfg.StatusAddress = "no-port"
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	cfg = scanConfig()
	cfg.Notify.WebhookURL = "not a url"
	require.ErrorIs(t, Validate(cfg), ErrInvalid)
}

// TestValidate_Defaults verifies the defaults applied per mode.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := scanConfig()
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultHousehold, cfg.Household)
	require.Equal(t, DefaultScanPollInterval, cfg.PollInterval)
	require.Equal(t, StorageFile, cfg.Storage.Driver)
	require.Equal(t, DefaultStateFilename, cfg.Storage.Path)
	require.Equal(t, DefaultInitialDelay, cfg.Confirmation.InitialDelay)
	require.Equal(t, DefaultSamples, cfg.Confirmation.Samples)
	require.Equal(t, DefaultSampleDelay, cfg.Confirmation.SampleDelay)
	require.Equal(t, logger.VerbosityWarn, cfg.Verbosity())

	hb := &Config{
		Mode:      ModeHeartbeat,
		Subjects:  []Subject{{Alias: "aaron"}},
		Heartbeat: HeartbeatConfig{Database: "heartbeat.db"},
	}
	require.NoError(t, Validate(hb))
	require.Equal(t, DefaultHeartbeatPollInterval, hb.PollInterval)
	require.Equal(t, StorageSQLite, hb.Storage.Driver)
	require.Equal(t, DefaultStateDatabase, hb.Storage.Path)
	require.Equal(t, DefaultFreshness, hb.Heartbeat.Freshness)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lamplighter.yaml")

	cfg := scanConfig()
	cfg.QuietHours = QuietHours{Start: 22, End: 6}
	cfg.ReportFrequency = 5 * time.Minute
	cfg.LogLevel = "info"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Subjects, loaded.Subjects)
	require.Equal(t, cfg.QuietHours, loaded.QuietHours)
	require.Equal(t, 5*time.Minute, loaded.ReportFrequency)
	require.Equal(t, logger.VerbosityInfo, loaded.Verbosity())

	subjects := loaded.DomainSubjects()
	require.Len(t, subjects, 2)
	require.Equal(t, "AA:BB:CC:DD:EE:01", subjects[0].Device)
	require.Equal(t, 22, loaded.DomainQuietHours().Start)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_YAMLDurations verifies human-written duration strings are parsed.
func TestLoad_YAMLDurations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lamplighter.yaml")
	contents := `
mode: heartbeat
log_level: LOG_DEBUG
poll_interval: 2s
subjects:
  - alias: aaron
  - alias: veronica
    heartbeat_key: vero
heartbeat:
  database: /tmp/heartbeat.db
  freshness: 45m
quiet_hours:
  start: 23
  end: 7
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.Equal(t, 45*time.Minute, cfg.Heartbeat.Freshness)
	require.Equal(t, "vero", cfg.DomainSubjects()[1].Key())
	require.Equal(t, logger.VerbosityDebug, cfg.Verbosity())
}

// TestLoad_EnvironmentOverrides verifies LAMPLIGHTER_* variables win over the file.
func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lamplighter.yaml")
	require.NoError(t, Save(path, scanConfig()))

	t.Setenv("LAMPLIGHTER_LOG_LEVEL", "debug")
	t.Setenv("LAMPLIGHTER_QUIET_HOURS_START", "21")
	t.Setenv("LAMPLIGHTER_QUIET_HOURS_END", "5")
	t.Setenv("LAMPLIGHTER_CONFIRMATION_SAMPLES", "5")
	t.Setenv("LAMPLIGHTER_SCAN_TARGETS", "10.0.0.0/24,10.0.1.0/24")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, logger.VerbosityDebug, cfg.Verbosity())
	require.Equal(t, QuietHours{Start: 21, End: 5}, cfg.QuietHours)
	require.Equal(t, 5, cfg.Confirmation.Samples)
	require.Equal(t, []string{"10.0.0.0/24", "10.0.1.0/24"}, cfg.Scan.Targets)
	require.Len(t, cfg.Subjects, 2)
}

// TestLoad_Errors covers missing and malformed files.
func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subjects: [\n"), DefaultFilePermissions))

	_, err = Load(path)
	require.Error(t, err)
}
