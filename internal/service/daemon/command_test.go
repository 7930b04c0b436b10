package daemon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jason790/lamplighter/internal/config"
	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

func validConfig() *config.Config {
	cfg := &config.Config{
		Mode:            config.ModeScan,
		Subjects:        []config.Subject{{Alias: " aaron ", Device: "AA:BB:CC:DD:EE:01"}},
		QuietHours:      config.QuietHours{Start: 23, End: 7},
		ReportFrequency: time.Hour,
		Scan:            config.ScanConfig{Targets: []string{"192.168.10.0/24"}},
	}

	if err := config.Validate(cfg); err != nil {
		panic(err)
	}

	return cfg
}

func TestSettings(t *testing.T) {
	t.Parallel()

	s := Settings(validConfig())

	require.Equal(t, config.DefaultHousehold, s.Household)
	require.Equal(t, []domain.Subject{{Alias: "aaron", Device: "AA:BB:CC:DD:EE:01"}}, s.Subjects)
	require.Equal(t, domain.QuietHours{Start: 23, End: 7}, s.QuietHours)
	require.Equal(t, config.DefaultScanPollInterval, s.PollInterval)
	require.Equal(t, time.Hour, s.ReportFrequency)
	require.Equal(t, config.DefaultFreshness, s.Freshness)
	require.Equal(t, config.DefaultInitialDelay, s.Confirmation.InitialDelay)
	require.Equal(t, config.DefaultSamples, s.Confirmation.Samples)
	require.Equal(t, config.DefaultSampleDelay, s.Confirmation.SampleDelay)
	require.Equal(t, config.DefaultRetryInitial, s.Retry.Initial)
	require.Equal(t, config.DefaultRetryMax, s.Retry.Max)
}

func TestNewCallbacks(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	cb, err := newCallbacks(cfg)
	require.NoError(t, err)
	require.Nil(t, cb.OnHome, "no notifier configured leaves the monitor defaults")

	cfg.Notify.WebhookURL = "http://127.0.0.1:9/hook"
	cfg.Notify.Command = "/usr/local/bin/lights"

	cb, err = newCallbacks(cfg)
	require.NoError(t, err)
	require.NotNil(t, cb.OnHome)
	require.NotNil(t, cb.OnLastAway)
}

func TestOpenStateStore(t *testing.T) {
	t.Parallel()

	for _, driver := range []config.StorageDriver{config.StorageFile, config.StorageSQLite} {
		t.Run(string(driver), func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.Storage = config.StorageConfig{Driver: driver, Path: t.TempDir() + "/state/" + string(driver)}

			store, closeFn, err := openStateStore(t.Context(), cfg)
			require.NoError(t, err)

			t.Cleanup(func() {
				require.NoError(t, closeFn())
			})

			rec, err := store.Set(t.Context(), "household", domain.StateHome)
			require.NoError(t, err)
			require.Equal(t, domain.StateHome, rec.State)
		})
	}
}
