package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReportSchedule(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	settings := testSettings()
	settings.ReportFrequency = time.Hour

	m := NewScanMonitor(settings, newMemStore(nil), counts(1), WithClock(func() time.Time { return now }))
	m.stats.StartedAt = now

	m.report(t.Context())
	require.Equal(t, now, m.lastReport)

	first := now
	now = now.Add(30 * time.Minute)

	m.report(t.Context())
	require.Equal(t, first, m.lastReport, "report is not due yet")

	now = now.Add(30 * time.Minute)

	m.report(t.Context())
	require.Equal(t, now, m.lastReport)
}

func TestReportDisabled(t *testing.T) {
	t.Parallel()

	require.False(t, reportEnabled(0))

	settings := testSettings()
	settings.ReportFrequency = 0

	m := NewScanMonitor(settings, newMemStore(nil), counts(1))
	m.report(t.Context())

	require.True(t, m.lastReport.IsZero())
}
