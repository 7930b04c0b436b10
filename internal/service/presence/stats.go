package presence

import (
	"context"
	"time"

	"github.com/jason790/lamplighter/internal/logger"
)

// Stats are the counters of a running Monitor.
type Stats struct {
	// StartedAt is when Run began.
	StartedAt time.Time
	// Observations counts every observer call, retries included.
	Observations int
	// Inconclusive counts observations that had to be retried.
	Inconclusive int
	// Transitions counts committed state changes.
	Transitions int
	// FalseAlarms counts departures aborted during confirmation.
	FalseAlarms int
	// IdleCycles counts polling cycles without any change.
	IdleCycles int
}

// reportEnabled reports whether the summary report would be visible.
func reportEnabled(frequency time.Duration) bool {
	return frequency > 0 && logger.CurrentVerbosity().Enabled(logger.VerbosityWarn)
}

// report logs the summary report when it is due.
func (m *Monitor) report(ctx context.Context) {
	if !reportEnabled(m.settings.ReportFrequency) {
		return
	}

	now := m.now()
	if !m.lastReport.IsZero() && now.Sub(m.lastReport) < m.settings.ReportFrequency {
		return
	}

	m.lastReport = now

	logger.WarnKV(ctx, "Summary report",
		"running_for", now.Sub(m.stats.StartedAt).Truncate(time.Second).String(),
		"observations", m.stats.Observations,
		"inconclusive", m.stats.Inconclusive,
		"transitions", m.stats.Transitions,
		"false_alarms", m.stats.FalseAlarms,
		"idle_cycles", m.stats.IdleCycles,
	)
}
