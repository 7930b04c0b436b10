package presence

import (
	"context"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/observer"
)

// scanStep runs one polling cycle of the scan variant.
func (m *Monitor) scanStep(ctx context.Context) ([]*domain.Record, error) {
	household := m.settings.Household

	rec, err := m.get(ctx, household)
	if err != nil {
		return nil, err
	}

	current := domain.StateUnknown
	if rec != nil {
		current = rec.State
	}

	logger.DebugKV(ctx, "Commencing search", "state", current.String(), "quiet", m.quiet())

	// A zero is only worth a second opinion when it could end a stay at home.
	result, err := m.count(ctx, current != domain.StateAway)
	if err != nil {
		return nil, err
	}

	observed := domain.StateOf(result.Count > 0)

	switch {
	case current == domain.StateUnknown:
		rec, err = m.set(ctx, household, current, observed)
		if err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "State initialized", "state", observed.String(), "devices", result.Count)

	case current == observed:
		m.stats.IdleCycles++

		logger.DebugKV(ctx, "Nothing to do", "state", current.String(), "devices", result.Count)

	case observed == domain.StateHome:
		rec, err = m.set(ctx, household, current, observed)
		if err != nil {
			return nil, err
		}

		quiet := m.quiet()

		logger.WarnKV(ctx, "State changed to home", "present", result.Present, "quiet", quiet)
		m.callbacks.OnHome(ctx, quiet, household)

	default:
		rec, err = m.depart(ctx, rec)
		if err != nil {
			return nil, err
		}
	}

	return []*domain.Record{rec}, nil
}

// depart confirms a suspected departure and commits it. Cancellation of ctx
// is ignored until the departure is either dismissed or committed and
// announced.
func (m *Monitor) depart(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	ctx = context.WithoutCancel(ctx)
	household := m.settings.Household

	confirmed, err := m.confirmAbsence(ctx)
	if err != nil {
		return nil, err
	}

	if !confirmed {
		m.stats.FalseAlarms++

		logger.Info(ctx, "False alarm, device found during confirmation")

		return rec, nil
	}

	rec, err = m.set(ctx, household, rec.State, domain.StateAway)
	if err != nil {
		return nil, err
	}

	quiet := m.quiet()

	logger.WarnKV(ctx, "State changed to away", "quiet", quiet)
	m.callbacks.OnAway(ctx, quiet, household)

	return rec, nil
}

// confirmAbsence takes the confirmation samples of a suspected departure.
// It reports true only when every sample found nobody.
func (m *Monitor) confirmAbsence(ctx context.Context) (bool, error) {
	c := m.settings.Confirmation

	logger.InfoKV(ctx, "Possible departure, confirming",
		"initial_delay", c.InitialDelay.String(),
		"samples", c.Samples,
		"sample_delay", c.SampleDelay.String())

	if err := sleep(ctx, c.InitialDelay); err != nil {
		return false, err
	}

	for i := range c.Samples {
		if i > 0 {
			if err := sleep(ctx, c.SampleDelay); err != nil {
				return false, err
			}
		}

		result, err := m.count(ctx, true)
		if err != nil {
			return false, err
		}

		logger.DebugKV(ctx, "Confirmation sample", "sample", i+1, "devices", result.Count)

		if result.Count > 0 {
			return false, nil
		}
	}

	return true, nil
}

// count asks the device counter until it gives a conclusive answer.
func (m *Monitor) count(ctx context.Context, confirmZero bool) (observer.ScanResult, error) {
	subjects := m.settings.Subjects

	return observe(ctx, m, func(ctx context.Context) (observer.ScanResult, error) {
		return m.counter.Count(ctx, subjects, confirmZero)
	})
}
