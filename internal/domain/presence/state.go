package presence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the inferred presence of a subject.
type State string

const (
	// StateUnknown means no record exists yet for the subject.
	StateUnknown State = ""
	// StateHome means the subject is considered present.
	StateHome State = "home"
	// StateAway means the subject is considered absent.
	StateAway State = "away"
)

// ErrUnknownState is returned when a stored or configured state cannot be parsed.
var ErrUnknownState = errors.New("unknown presence state")

// ParseState converts the persisted spelling of a state.
func ParseState(s string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case StateHome:
		return StateHome, nil
	case StateAway:
		return StateAway, nil
	default:
		return StateUnknown, fmt.Errorf("%q: %w", s, ErrUnknownState)
	}
}

// StateOf maps a raw presence observation to a state.
func StateOf(present bool) State {
	if present {
		return StateHome
	}

	return StateAway
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s == StateUnknown {
		return "unknown"
	}

	return string(s)
}

// Subject is a tracked person.
type Subject struct {
	// Alias is the unique name used for records and callbacks.
	Alias string
	// Device is the fingerprint (usually a MAC address) matched against scan results.
	Device string
	// HeartbeatKey is the key looked up in the heartbeat store. Empty means Alias.
	HeartbeatKey string
}

// Key returns the heartbeat key of the subject.
func (s Subject) Key() string {
	if s.HeartbeatKey != "" {
		return s.HeartbeatKey
	}

	return s.Alias
}

// Aliases returns the aliases of subjects in order.
func Aliases(subjects []Subject) []string {
	aliases := make([]string, 0, len(subjects))
	for _, s := range subjects {
		aliases = append(aliases, s.Alias)
	}

	return aliases
}

// Record is the last confirmed state of a subject.
type Record struct {
	// Subject is the alias the record belongs to.
	Subject string
	// State is the confirmed presence.
	State State
	// UpdatedAt is when the state was last written.
	UpdatedAt time.Time
}

// Clone returns a copy of the record to avoid leaking internal references.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}

// Change describes one committed transition.
type Change struct {
	Subject string
	From    State
	To      State
}

// String implements fmt.Stringer.
func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Subject, c.From, c.To)
}

// Combined returns StateHome if any record is home, otherwise StateAway.
func Combined(records []*Record) State {
	for _, r := range records {
		if r != nil && r.State == StateHome {
			return StateHome
		}
	}

	return StateAway
}
