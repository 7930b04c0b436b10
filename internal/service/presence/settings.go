package presence

import (
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

// Settings are the reloadable parameters of a Monitor.
type Settings struct {
	// Household is the record key of the scan variant.
	Household string
	// Subjects are the tracked people.
	Subjects []domain.Subject
	// QuietHours is passed to callbacks as the quiet flag.
	QuietHours domain.QuietHours
	// PollInterval is the pause between polling cycles.
	PollInterval time.Duration
	// ReportFrequency is how often the summary report is logged; 0 disables it.
	ReportFrequency time.Duration
	// Freshness is the heartbeat age below which a subject is present.
	Freshness time.Duration
	// Confirmation controls departure confirmation in the scan variant.
	Confirmation Confirmation
	// Retry controls the backoff between inconclusive observations.
	Retry Retry
}

// Confirmation controls the departure confirmation sub-routine.
type Confirmation struct {
	// InitialDelay is the wait before the first confirmation sample.
	InitialDelay time.Duration
	// Samples is how many consecutive absent samples commit a departure.
	Samples int
	// SampleDelay is the wait between two confirmation samples.
	SampleDelay time.Duration
}

// Retry bounds the exponential backoff between inconclusive observations.
type Retry struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Household:    "household",
		PollInterval: time.Second,
		Freshness:    45 * time.Minute,
		Confirmation: Confirmation{
			InitialDelay: 10 * time.Second,
			Samples:      3,
			SampleDelay:  5 * time.Second,
		},
		Retry: Retry{
			Initial: 500 * time.Millisecond,
			Max:     30 * time.Second,
		},
	}
}

// withDefaults fills zero values that would make the loop spin or never confirm.
func (s Settings) withDefaults() Settings {
	def := DefaultSettings()

	if s.Household == "" {
		s.Household = def.Household
	}

	if s.PollInterval <= 0 {
		s.PollInterval = def.PollInterval
	}

	if s.Freshness <= 0 {
		s.Freshness = def.Freshness
	}

	if s.Confirmation.Samples <= 0 {
		s.Confirmation.Samples = def.Confirmation.Samples
	}

	if s.Retry.Initial <= 0 {
		s.Retry.Initial = def.Retry.Initial
	}

	if s.Retry.Max < s.Retry.Initial {
		s.Retry.Max = max(def.Retry.Max, s.Retry.Initial)
	}

	return s
}
