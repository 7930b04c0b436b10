package presence

import (
	"context"
	"fmt"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/observer"
)

// heartbeatStep runs one polling cycle of the heartbeat variant. Every
// subject is observed once; a suspected departure is confirmed by the
// next cycle seeing the same stale heartbeat.
func (m *Monitor) heartbeatStep(ctx context.Context) ([]*domain.Record, error) {
	subjects := m.settings.Subjects

	known, err := m.store.GetAll(ctx, domain.Aliases(subjects))
	if err != nil {
		return nil, fmt.Errorf("get states: %w", err)
	}

	samples, err := observe(ctx, m, func(ctx context.Context) ([]observer.HeartbeatSample, error) {
		return m.reader.Observe(ctx, subjects)
	})
	if err != nil {
		return nil, err
	}

	byAlias := make(map[string]*domain.Record, len(known))
	for _, rec := range known {
		byAlias[rec.Subject] = rec
	}

	var (
		records = make([]*domain.Record, 0, len(samples))
		changes []domain.Change
	)

	for _, sample := range samples {
		observed := domain.StateOf(sample.Present(m.settings.Freshness))

		rec, ok := byAlias[sample.Alias]
		if ok && rec.State == observed {
			logger.DebugKV(ctx, "No change", "subject", sample.Alias, "state", rec.State.String(),
				"since", rec.UpdatedAt.Format(time.DateTime))

			records = append(records, rec)

			continue
		}

		from := domain.StateUnknown
		if ok {
			from = rec.State
		}

		updated, err := m.set(ctx, sample.Alias, from, observed)
		if err != nil {
			return nil, err
		}

		records = append(records, updated)

		if !ok {
			logger.InfoKV(ctx, "State initialized", "subject", sample.Alias, "state", observed.String())
			continue
		}

		changes = append(changes, domain.Change{Subject: sample.Alias, From: from, To: observed})

		if observed == domain.StateHome {
			logger.WarnKV(ctx, "Subject has returned home", "subject", sample.Alias)
		} else {
			logger.WarnKV(ctx, "Subject appears to have left", "subject", sample.Alias,
				"likely_departure", m.now().Add(-m.settings.Freshness).Format(time.DateTime))
		}
	}

	if len(changes) == 0 {
		m.stats.IdleCycles++
		return records, nil
	}

	m.dispatch(ctx, domain.Combined(known), domain.Combined(records), len(known) > 0, changes)

	return records, nil
}

// dispatch fires the combined callbacks when the combined state flipped and
// the per-subject callbacks otherwise.
func (m *Monitor) dispatch(ctx context.Context, before, after domain.State, hadBefore bool, changes []domain.Change) {
	quiet := m.quiet()

	if hadBefore && before != after {
		logger.WarnKV(ctx, "Combined state changed", "from", before.String(), "to", after.String(), "quiet", quiet)

		if after == domain.StateHome {
			m.callbacks.OnFirstHome(ctx, quiet, changes)
		} else {
			m.callbacks.OnLastAway(ctx, quiet, changes)
		}

		return
	}

	for _, c := range changes {
		if c.To == domain.StateHome {
			m.callbacks.OnHome(ctx, quiet, c.Subject)
		} else {
			m.callbacks.OnAway(ctx, quiet, c.Subject)
		}
	}
}
