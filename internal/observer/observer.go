package observer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/logger"
)

// ErrInconclusive marks an observation that failed at the transport level.
// Callers retry it and never treat it as data.
var ErrInconclusive = errors.New("observation inconclusive")

// Scanner sweeps the network and returns every token it saw: MAC addresses,
// IP addresses and hostnames.
type Scanner interface {
	Name() string
	Scan(ctx context.Context) ([]string, error)
}

// ScanResult is the outcome of one device count.
type ScanResult struct {
	// Count is the number of subjects whose device was found.
	Count int
	// Present lists the aliases of those subjects.
	Present []string
	// Scanner names the backend that produced the result.
	Scanner string
}

// ScanObserver counts subjects whose device fingerprint shows up in a scan.
type ScanObserver struct {
	// primary is asked first on every count.
	primary Scanner
	// fallback gives a second opinion when primary finds nobody.
	fallback Scanner
	// fallbackDelay is the pause before the fallback is asked.
	fallbackDelay time.Duration
}

// ScanOption configures a ScanObserver.
type ScanOption func(*ScanObserver)

// WithFallback asks s, after delay, whenever the primary scanner finds nobody
// and the caller requested zero confirmation.
func WithFallback(s Scanner, delay time.Duration) ScanOption {
	return func(o *ScanObserver) {
		o.fallback = s
		o.fallbackDelay = delay
	}
}

// NewScanObserver creates an observer on top of primary.
func NewScanObserver(primary Scanner, opts ...ScanOption) *ScanObserver {
	o := &ScanObserver{primary: primary}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Count runs a scan and counts matching subjects. When confirmZero is set and
// nothing matched, the fallback scanner's answer replaces the zero.
func (o *ScanObserver) Count(ctx context.Context, subjects []domain.Subject, confirmZero bool) (ScanResult, error) {
	result, err := o.count(ctx, o.primary, subjects)
	if err != nil {
		return ScanResult{}, err
	}

	if result.Count > 0 || !confirmZero || o.fallback == nil {
		return result, nil
	}

	logger.DebugKV(ctx, "Primary scan found nobody, asking fallback",
		"primary", o.primary.Name(), "fallback", o.fallback.Name(), "delay", o.fallbackDelay)

	if err = sleep(ctx, o.fallbackDelay); err != nil {
		return ScanResult{}, err
	}

	return o.count(ctx, o.fallback, subjects)
}

func (o *ScanObserver) count(ctx context.Context, s Scanner, subjects []domain.Subject) (ScanResult, error) {
	tokens, err := s.Scan(ctx)
	if err != nil {
		if errors.Is(err, ErrInconclusive) {
			return ScanResult{}, err
		}

		return ScanResult{}, fmt.Errorf("%s: %w: %w", s.Name(), ErrInconclusive, err)
	}

	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[NormalizeToken(t)] = struct{}{}
	}

	result := ScanResult{Scanner: s.Name()}

	for _, subject := range subjects {
		if _, ok := seen[NormalizeToken(subject.Device)]; !ok {
			continue
		}

		logger.DebugKV(ctx, "Found device", "subject", subject.Alias, "scanner", s.Name())

		result.Count++
		result.Present = append(result.Present, subject.Alias)
	}

	return result, nil
}

// NormalizeToken lower-cases a token and unifies MAC separators.
func NormalizeToken(token string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(token)), "-", ":")
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
