package observer

import (
	"context"
	"fmt"
	"math"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

// NeverSeen is the age reported for a subject without any heartbeat.
const NeverSeen = time.Duration(math.MaxInt64)

// HeartbeatSource returns the latest heartbeat per key; keys never seen are absent.
type HeartbeatSource interface {
	LastSeen(ctx context.Context, keys []string) (map[string]time.Time, error)
}

// HeartbeatSample is the heartbeat age of one subject.
type HeartbeatSample struct {
	Alias string
	// Age is now minus the last heartbeat, or NeverSeen.
	Age time.Duration
}

// Present reports whether the heartbeat is younger than freshness.
func (s HeartbeatSample) Present(freshness time.Duration) bool {
	return s.Age < freshness
}

// HeartbeatObserver turns heartbeat timestamps into ages.
type HeartbeatObserver struct {
	source HeartbeatSource
	now    func() time.Time
}

// NewHeartbeatObserver creates an observer reading from source.
// A nil now defaults to time.Now.
func NewHeartbeatObserver(source HeartbeatSource, now func() time.Time) *HeartbeatObserver {
	if now == nil {
		now = time.Now
	}

	return &HeartbeatObserver{
		source: source,
		now:    now,
	}
}

// Observe returns one sample per subject, in order.
func (o *HeartbeatObserver) Observe(ctx context.Context, subjects []domain.Subject) ([]HeartbeatSample, error) {
	keys := make([]string, 0, len(subjects))
	for _, s := range subjects {
		keys = append(keys, s.Key())
	}

	seen, err := o.source.LastSeen(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: %w: %w", ErrInconclusive, err)
	}

	now := o.now()
	samples := make([]HeartbeatSample, 0, len(subjects))

	for _, s := range subjects {
		sample := HeartbeatSample{
			Alias: s.Alias,
			Age:   NeverSeen,
		}

		if ts, ok := seen[s.Key()]; ok {
			sample.Age = now.Sub(ts)
		}

		samples = append(samples, sample)
	}

	return samples, nil
}
