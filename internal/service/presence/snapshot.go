package presence

import (
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

// Snapshot is a read-only view of the Monitor after its last polling cycle.
type Snapshot struct {
	Mode      Mode
	Records   []*domain.Record
	Combined  domain.State
	Quiet     bool
	Stats     Stats
	UpdatedAt time.Time
}

// Snapshot returns the state published by the last polling cycle.
// It is safe to call from any goroutine.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.Records = make([]*domain.Record, 0, len(m.snapshot.Records))

	for _, rec := range m.snapshot.Records {
		s.Records = append(s.Records, rec.Clone())
	}

	return s
}

func (m *Monitor) publish(records []*domain.Record) {
	now := m.now()

	snapshot := Snapshot{
		Mode:      m.mode,
		Records:   records,
		Combined:  domain.Combined(records),
		Quiet:     m.settings.QuietHours.Active(now),
		Stats:     m.stats,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.snapshot = snapshot
	m.mu.Unlock()
}
