package notify

import (
	"context"
	"errors"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/logger"
	"github.com/jason790/lamplighter/internal/service/presence"
)

// Kind identifies the callback that produced an event.
type Kind string

const (
	KindHome      Kind = "home"
	KindAway      Kind = "away"
	KindFirstHome Kind = "first_home"
	KindLastAway  Kind = "last_away"
)

// DefaultTimeout bounds a single delivery when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Event is one transition to deliver.
type Event struct {
	Kind  Kind
	Who   string
	Quiet bool
	// Changes is set for combined events only.
	Changes []domain.Change
	At      time.Time
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi delivers an event to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error

	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Callbacks adapts n to monitor callbacks. Each delivery is bounded by timeout.
func Callbacks(n Notifier, timeout time.Duration) presence.Callbacks {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	deliver := func(ctx context.Context, e Event) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		e.At = time.Now()

		if err := n.Notify(ctx, e); err != nil {
			logger.ErrorKV(ctx, "Notification failed", "event", string(e.Kind), "error", err)
			return
		}

		logger.DebugKV(ctx, "Notification delivered", "event", string(e.Kind), "quiet", e.Quiet)
	}

	subject := func(kind Kind) presence.SubjectCallback {
		return func(ctx context.Context, quiet bool, who string) {
			deliver(ctx, Event{Kind: kind, Who: who, Quiet: quiet})
		}
	}

	combined := func(kind Kind) presence.CombinedCallback {
		return func(ctx context.Context, quiet bool, changes []domain.Change) {
			deliver(ctx, Event{Kind: kind, Quiet: quiet, Changes: changes})
		}
	}

	return presence.Callbacks{
		OnHome:      subject(KindHome),
		OnAway:      subject(KindAway),
		OnFirstHome: combined(KindFirstHome),
		OnLastAway:  combined(KindLastAway),
	}
}
