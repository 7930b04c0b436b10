package presence

import (
	"context"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

type (
	// SubjectCallback is invoked for a single subject transition.
	SubjectCallback func(ctx context.Context, quiet bool, who string)
	// CombinedCallback is invoked when the combined state flips.
	CombinedCallback func(ctx context.Context, quiet bool, changes []domain.Change)
)

// Callbacks are the side effects of committed transitions. Unset callbacks do nothing.
type Callbacks struct {
	OnHome      SubjectCallback
	OnAway      SubjectCallback
	OnFirstHome CombinedCallback
	OnLastAway  CombinedCallback
}

func (c Callbacks) withDefaults() Callbacks {
	noopSubject := func(context.Context, bool, string) {}
	noopCombined := func(context.Context, bool, []domain.Change) {}

	if c.OnHome == nil {
		c.OnHome = noopSubject
	}

	if c.OnAway == nil {
		c.OnAway = noopSubject
	}

	if c.OnFirstHome == nil {
		c.OnFirstHome = noopCombined
	}

	if c.OnLastAway == nil {
		c.OnLastAway = noopCombined
	}

	return c
}
