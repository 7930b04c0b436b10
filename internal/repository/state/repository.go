package state

import (
	"context"
	"errors"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

// Repository defines persistence operations for presence records.
type Repository interface {
	// EnsureSchema prepares the underlying storage. It is idempotent.
	EnsureSchema(ctx context.Context) error
	// Get returns the record of subject or ErrNotFound.
	Get(ctx context.Context, subject string) (*domain.Record, error)
	// Set upserts the state of subject with a fresh timestamp.
	Set(ctx context.Context, subject string, state domain.State) (*domain.Record, error)
	// GetAll returns the records of the given subjects; subjects without a record are omitted.
	GetAll(ctx context.Context, subjects []string) ([]*domain.Record, error)
}

var (
	// ErrNotFound is returned when a subject has no record yet.
	ErrNotFound = errors.New("state not found")
	// errInvalidState is returned when Set is asked to store StateUnknown.
	errInvalidState = errors.New("state must be home or away")
	// errSubjectRequired is returned when an empty subject is passed.
	errSubjectRequired = errors.New("subject must be provided")
)

// Option configures a repository.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// nextTimestamp returns now, or one nanosecond past previous when the clock has not advanced.
func nextTimestamp(now, previous time.Time) time.Time {
	if !now.After(previous) {
		return previous.Add(time.Nanosecond)
	}

	return now
}

func validateSet(subject string, state domain.State) error {
	if subject == "" {
		return errSubjectRequired
	}

	if state != domain.StateHome && state != domain.StateAway {
		return errInvalidState
	}

	return nil
}
