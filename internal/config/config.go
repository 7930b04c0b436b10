package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/logger"
)

// Mode selects the observation source.
type Mode string

const (
	// ModeScan detects a household by scanning the network for device fingerprints.
	ModeScan Mode = "scan"
	// ModeHeartbeat tracks each subject by the age of its last heartbeat.
	ModeHeartbeat Mode = "heartbeat"
)

// StorageDriver selects the state store implementation.
type StorageDriver string

const (
	// StorageFile keeps states in a JSON document.
	StorageFile StorageDriver = "file"
	// StorageSQLite keeps states in a SQLite table.
	StorageSQLite StorageDriver = "sqlite"
)

// Config holds every setting of the lamplighter daemon.
type Config struct {
	// Mode selects the scan or heartbeat observation source.
	Mode Mode `yaml:"mode" env:"MODE"`
	// Household is the record name used by the scan mode.
	Household string `yaml:"household" env:"HOUSEHOLD"`
	// Subjects lists tracked people. It is static until the next reload.
	Subjects []Subject `yaml:"subjects" env:"-"`
	// QuietHours is the window during which callbacks are told to stay silent.
	QuietHours QuietHours `yaml:"quiet_hours" envPrefix:"QUIET_HOURS_"`
	// PollInterval is the pause between two observation cycles.
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// ReportFrequency is how often a summary line is logged. Zero disables it.
	ReportFrequency time.Duration `yaml:"report_frequency" env:"REPORT_FREQUENCY"`
	// LogLevel is one of none, warn (brief), info, debug.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	// PIDFile is where the daemon writes its process ID.
	PIDFile string `yaml:"pid_file" env:"PID_FILE"`
	// StatusAddress enables the gRPC status API when set.
	StatusAddress string `yaml:"status_addr,omitempty" env:"STATUS_ADDR"`
	// Scan configures the network scanners.
	Scan ScanConfig `yaml:"scan" envPrefix:"SCAN_"`
	// Heartbeat configures the heartbeat store.
	Heartbeat HeartbeatConfig `yaml:"heartbeat" envPrefix:"HEARTBEAT_"`
	// Confirmation configures the away debounce and observation retries.
	Confirmation ConfirmationConfig `yaml:"confirmation" envPrefix:"CONFIRMATION_"`
	// Storage configures where confirmed states are kept.
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	// Notify configures the callback notifiers.
	Notify NotifyConfig `yaml:"notify" envPrefix:"NOTIFY_"`
}

// Subject is a tracked person as written in the settings file.
type Subject struct {
	// Alias is the unique subject name.
	Alias string `yaml:"alias"`
	// Device is the fingerprint looked for in scan results.
	Device string `yaml:"device,omitempty"`
	// HeartbeatKey overrides the key looked up in the heartbeat store.
	HeartbeatKey string `yaml:"heartbeat_key,omitempty"`
}

// QuietHours bounds the quiet window in whole hours.
type QuietHours struct {
	Start int `yaml:"start" env:"START"`
	End   int `yaml:"end" env:"END"`
}

// ScanConfig configures the nmap and arp-scan backends.
type ScanConfig struct {
	// Targets are CIDR ranges or hosts to sweep.
	Targets []string `yaml:"targets" env:"TARGETS"`
	// NmapPath overrides the nmap binary location.
	NmapPath string `yaml:"nmap_path,omitempty" env:"NMAP_PATH"`
	// ArpScan enables arp-scan as a second opinion on empty nmap sweeps.
	ArpScan bool `yaml:"arp_scan" env:"ARP_SCAN"`
	// ArpScanPath overrides the arp-scan binary location.
	ArpScanPath string `yaml:"arp_scan_path,omitempty" env:"ARP_SCAN_PATH"`
	// ArpInterface is passed to arp-scan as --interface when set.
	ArpInterface string `yaml:"arp_interface,omitempty" env:"ARP_INTERFACE"`
	// FallbackDelay is the pause before asking arp-scan.
	FallbackDelay time.Duration `yaml:"fallback_delay" env:"FALLBACK_DELAY"`
	// Timeout bounds a single scanner invocation.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// HeartbeatConfig configures the heartbeat source.
type HeartbeatConfig struct {
	// Database is the SQLite file holding the heartbeats table.
	Database string `yaml:"database" env:"DATABASE"`
	// Freshness is the maximum heartbeat age still counted as present.
	Freshness time.Duration `yaml:"freshness" env:"FRESHNESS"`
}

// ConfirmationConfig configures the away debounce.
type ConfirmationConfig struct {
	// InitialDelay is the pause after the first negative sample.
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	// Samples is the number of confirmation samples that must all be negative.
	Samples int `yaml:"samples" env:"SAMPLES"`
	// SampleDelay is the pause between confirmation samples.
	SampleDelay time.Duration `yaml:"sample_delay" env:"SAMPLE_DELAY"`
	// RetryInitial is the first backoff after an inconclusive observation.
	RetryInitial time.Duration `yaml:"retry_initial" env:"RETRY_INITIAL"`
	// RetryMax caps the backoff between inconclusive observations.
	RetryMax time.Duration `yaml:"retry_max" env:"RETRY_MAX"`
}

// StorageConfig selects the state store.
type StorageConfig struct {
	Driver StorageDriver `yaml:"driver" env:"DRIVER"`
	Path   string        `yaml:"path" env:"PATH"`
}

// NotifyConfig configures the notifiers invoked on state changes.
type NotifyConfig struct {
	// WebhookURL receives a JSON POST per event when set.
	WebhookURL string `yaml:"webhook_url,omitempty" env:"WEBHOOK_URL"`
	// Command is executed per event when set.
	Command string `yaml:"command,omitempty" env:"COMMAND"`
	// Timeout bounds a single notification.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "lamplighter.yaml"

	// DefaultStateFilename is the default state document for the file driver.
	DefaultStateFilename = "lamplighter-state.json"

	// DefaultStateDatabase is the default state database for the sqlite driver.
	DefaultStateDatabase = "lamplighter.db"

	// DefaultPIDFile is where the daemon writes its process ID.
	DefaultPIDFile = "/var/run/lamplighter.pid"

	// DefaultHousehold is the record name used by the scan mode.
	DefaultHousehold = "household"

	// DefaultScanPollInterval is the pause between network sweeps.
	DefaultScanPollInterval = 1 * time.Second

	// DefaultHeartbeatPollInterval is the pause between heartbeat reads.
	DefaultHeartbeatPollInterval = 5 * time.Second

	// DefaultFreshness is the heartbeat age after which a subject is away.
	DefaultFreshness = 2700 * time.Second

	// DefaultInitialDelay is the pause before confirming an away transition.
	DefaultInitialDelay = 10 * time.Second

	// DefaultSamples is the number of confirmation samples.
	DefaultSamples = 3

	// DefaultSampleDelay is the pause between confirmation samples.
	DefaultSampleDelay = 5 * time.Second

	// DefaultRetryInitial is the first backoff after an inconclusive observation.
	DefaultRetryInitial = 500 * time.Millisecond

	// DefaultRetryMax caps the backoff between inconclusive observations.
	DefaultRetryMax = 30 * time.Second

	// DefaultFallbackDelay is the pause between an empty nmap sweep and arp-scan.
	DefaultFallbackDelay = 1 * time.Second

	// DefaultScanTimeout bounds a single scanner invocation.
	DefaultScanTimeout = 2 * time.Minute

	// DefaultNotifyTimeout bounds a single notification.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultFilePermissions is the default file permission for settings and state files.
	DefaultFilePermissions = 0o600

	// envPrefix prefixes every environment override.
	envPrefix = "LAMPLIGHTER_"

	// maxHour is the largest accepted quiet hours bound; 24 means midnight.
	maxHour = 24
)

// ErrInvalid marks every validation failure of the settings.
var ErrInvalid = errors.New("invalid settings")

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads configuration from the provided path, applies environment
// overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for required fields and formatting.
//
//nolint:cyclop,funlen // A flat list of checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if cfg.Mode != ModeScan && cfg.Mode != ModeHeartbeat {
		return fmt.Errorf("%w: mode %q must be %q or %q", ErrInvalid, cfg.Mode, ModeScan, ModeHeartbeat)
	}

	if len(cfg.Subjects) == 0 {
		return fmt.Errorf("%w: at least one subject is required", ErrInvalid)
	}

	seen := make(map[string]struct{}, len(cfg.Subjects))
	for i, s := range cfg.Subjects {
		alias := strings.TrimSpace(s.Alias)
		if alias == "" {
			return fmt.Errorf("%w: subject #%d has no alias", ErrInvalid, i+1)
		}

		if _, ok := seen[alias]; ok {
			return fmt.Errorf("%w: duplicate subject %q", ErrInvalid, alias)
		}

		seen[alias] = struct{}{}

		if cfg.Mode == ModeScan && strings.TrimSpace(s.Device) == "" {
			return fmt.Errorf("%w: subject %q has no device", ErrInvalid, alias)
		}
	}

	if cfg.Mode == ModeScan && len(cfg.Scan.Targets) == 0 {
		return fmt.Errorf("%w: scan mode needs at least one target", ErrInvalid)
	}

	if cfg.Mode == ModeHeartbeat && cfg.Heartbeat.Database == "" {
		return fmt.Errorf("%w: heartbeat mode needs a database", ErrInvalid)
	}

	for _, h := range []int{cfg.QuietHours.Start, cfg.QuietHours.End} {
		if h < 0 || h > maxHour {
			return fmt.Errorf("%w: quiet hour %d is out of range 0-%d", ErrInvalid, h, maxHour)
		}
	}

	if _, ok := logger.ParseVerbosity(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, cfg.LogLevel)
	}

	if cfg.Storage.Driver != StorageFile && cfg.Storage.Driver != StorageSQLite {
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, cfg.Storage.Driver)
	}

	if cfg.Confirmation.Samples < 1 {
		return fmt.Errorf("%w: confirmation needs at least one sample", ErrInvalid)
	}

	if cfg.StatusAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.StatusAddress); err != nil {
			return fmt.Errorf("%w: status address: %w", ErrInvalid, err)
		}
	}

	if cfg.Notify.WebhookURL != "" {
		if _, err := url.ParseRequestURI(cfg.Notify.WebhookURL); err != nil {
			return fmt.Errorf("%w: webhook url: %w", ErrInvalid, err)
		}
	}

	return nil
}

// applyDefaults fills in missing values.
//
//nolint:cyclop // One branch per default.
func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeScan
	}

	if cfg.Household == "" {
		cfg.Household = DefaultHousehold
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultScanPollInterval
		if cfg.Mode == ModeHeartbeat {
			cfg.PollInterval = DefaultHeartbeatPollInterval
		}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = logger.VerbosityWarn.String()
	}

	if cfg.PIDFile == "" {
		cfg.PIDFile = DefaultPIDFile
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageFile
		if cfg.Mode == ModeHeartbeat {
			cfg.Storage.Driver = StorageSQLite
		}
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStateFilename
		if cfg.Storage.Driver == StorageSQLite {
			cfg.Storage.Path = DefaultStateDatabase
		}
	}

	if cfg.Scan.FallbackDelay <= 0 {
		cfg.Scan.FallbackDelay = DefaultFallbackDelay
	}

	if cfg.Scan.Timeout <= 0 {
		cfg.Scan.Timeout = DefaultScanTimeout
	}

	if cfg.Heartbeat.Freshness <= 0 {
		cfg.Heartbeat.Freshness = DefaultFreshness
	}

	if cfg.Confirmation.InitialDelay <= 0 {
		cfg.Confirmation.InitialDelay = DefaultInitialDelay
	}

	if cfg.Confirmation.Samples == 0 {
		cfg.Confirmation.Samples = DefaultSamples
	}

	if cfg.Confirmation.SampleDelay <= 0 {
		cfg.Confirmation.SampleDelay = DefaultSampleDelay
	}

	if cfg.Confirmation.RetryInitial <= 0 {
		cfg.Confirmation.RetryInitial = DefaultRetryInitial
	}

	if cfg.Confirmation.RetryMax <= 0 {
		cfg.Confirmation.RetryMax = DefaultRetryMax
	}

	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}
}

// Verbosity returns the parsed log level. Validate must have succeeded.
func (c *Config) Verbosity() logger.Verbosity {
	v, _ := logger.ParseVerbosity(c.LogLevel)

	return v
}

// DomainSubjects converts the configured subjects into domain subjects.
func (c *Config) DomainSubjects() []domain.Subject {
	subjects := make([]domain.Subject, 0, len(c.Subjects))
	for _, s := range c.Subjects {
		subjects = append(subjects, domain.Subject{
			Alias:        strings.TrimSpace(s.Alias),
			Device:       strings.TrimSpace(s.Device),
			HeartbeatKey: strings.TrimSpace(s.HeartbeatKey),
		})
	}

	return subjects
}

// DomainQuietHours converts the quiet window into the domain gate.
func (c *Config) DomainQuietHours() domain.QuietHours {
	return domain.QuietHours{
		Start: c.QuietHours.Start,
		End:   c.QuietHours.End,
	}
}
