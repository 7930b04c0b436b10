package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/observer"
	"github.com/jason790/lamplighter/internal/repository/state"
)

// Mode names the observation source of a Monitor.
type Mode string

const (
	// ModeScan counts household devices on the network.
	ModeScan Mode = "scan"
	// ModeHeartbeat reads per-subject heartbeat ages.
	ModeHeartbeat Mode = "heartbeat"
)

type (
	// DeviceCounter counts subjects whose device is on the network.
	DeviceCounter interface {
		Count(ctx context.Context, subjects []domain.Subject, confirmZero bool) (observer.ScanResult, error)
	}

	// HeartbeatReader reports the heartbeat age of every subject.
	HeartbeatReader interface {
		Observe(ctx context.Context, subjects []domain.Subject) ([]observer.HeartbeatSample, error)
	}
)

// Monitor is the presence control loop. A Monitor is not safe for concurrent
// use apart from Snapshot.
type Monitor struct {
	mode      Mode
	store     state.Repository
	counter   DeviceCounter
	reader    HeartbeatReader
	callbacks Callbacks
	settings  Settings
	now       func() time.Time

	stats      Stats
	lastReport time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithCallbacks registers the transition callbacks.
func WithCallbacks(c Callbacks) Option {
	return func(m *Monitor) {
		m.callbacks = c
	}
}

// WithClock overrides the time source used for quiet hours and reports.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewScanMonitor creates a Monitor that tracks the household through device scans.
func NewScanMonitor(settings Settings, store state.Repository, counter DeviceCounter, opts ...Option) *Monitor {
	m := newMonitor(ModeScan, settings, store, opts)
	m.counter = counter

	return m
}

// NewHeartbeatMonitor creates a Monitor that tracks every subject through heartbeats.
func NewHeartbeatMonitor(settings Settings, store state.Repository, reader HeartbeatReader, opts ...Option) *Monitor {
	m := newMonitor(ModeHeartbeat, settings, store, opts)
	m.reader = reader

	return m
}

func newMonitor(mode Mode, settings Settings, store state.Repository, opts []Option) *Monitor {
	m := &Monitor{
		mode:     mode,
		store:    store,
		settings: settings.withDefaults(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.callbacks = m.callbacks.withDefaults()

	return m
}

// Run polls until ctx is canceled. Settings received on reload replace the
// current ones between polling cycles; a confirmation in progress is never
// interrupted by either. Run returns nil on cancellation and an error only
// when the state store fails.
func (m *Monitor) Run(ctx context.Context, reload <-chan Settings) error {
	ctx = logger.WithName(ctx, "monitor")

	m.stats.StartedAt = m.now()

	logger.InfoKV(ctx, "Beginning observation",
		"mode", string(m.mode),
		"subjects", len(m.settings.Subjects),
		"poll_interval", m.settings.PollInterval.String())

	if reportEnabled(m.settings.ReportFrequency) {
		logger.InfoKV(ctx, "Summary report enabled", "every", m.settings.ReportFrequency.String())
	} else {
		logger.Info(ctx, "Summary report disabled")
	}

	for {
		m.report(ctx)

		if err := m.Step(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Context canceled, exiting")
				return nil
			}

			return err
		}

		if err := m.wait(ctx, reload); err != nil {
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		}
	}
}

// Step runs a single polling cycle.
func (m *Monitor) Step(ctx context.Context) error {
	var (
		records []*domain.Record
		err     error
	)

	if m.mode == ModeHeartbeat {
		records, err = m.heartbeatStep(ctx)
	} else {
		records, err = m.scanStep(ctx)
	}

	if err != nil {
		return err
	}

	m.publish(records)

	return nil
}

// Apply replaces the settings of the Monitor.
func (m *Monitor) Apply(ctx context.Context, settings Settings) {
	m.settings = settings.withDefaults()

	logger.InfoKV(ctx, "Settings reloaded",
		"subjects", len(m.settings.Subjects),
		"poll_interval", m.settings.PollInterval.String(),
		"quiet_hours", fmt.Sprintf("%d-%d", m.settings.QuietHours.Start, m.settings.QuietHours.End))
}

// Stats returns a copy of the counters.
func (m *Monitor) Stats() Stats {
	return m.stats
}

// wait sleeps for the poll interval. A reload cuts the sleep short.
func (m *Monitor) wait(ctx context.Context, reload <-chan Settings) error {
	timer := time.NewTimer(m.settings.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case settings, ok := <-reload:
		if ok {
			m.Apply(ctx, settings)
		}

		return nil
	case <-timer.C:
		return nil
	}
}

// quiet evaluates the quiet hours gate at the current time.
func (m *Monitor) quiet() bool {
	return m.settings.QuietHours.Active(m.now())
}

// get returns the record of subject or nil when it has none.
func (m *Monitor) get(ctx context.Context, subject string) (*domain.Record, error) {
	rec, err := m.store.Get(ctx, subject)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get state of %q: %w", subject, err)
	}

	return rec, nil
}

// set persists a state and counts it as a transition when from is known.
func (m *Monitor) set(ctx context.Context, subject string, from, to domain.State) (*domain.Record, error) {
	rec, err := m.store.Set(ctx, subject, to)
	if err != nil {
		return nil, fmt.Errorf("set state of %q to %s: %w", subject, to, err)
	}

	if from != domain.StateUnknown {
		m.stats.Transitions++
	}

	return rec, nil
}
