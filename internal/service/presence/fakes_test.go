package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/observer"
	"github.com/jason790/lamplighter/internal/repository/state"
)

var errScannerDown = fmt.Errorf("nmap: %w: exit status 1", observer.ErrInconclusive)

type memStore struct {
	mu      sync.Mutex
	records map[string]*domain.Record
	setErr  error
	writes  int
}

func newMemStore(initial map[string]domain.State) *memStore {
	s := &memStore{records: make(map[string]*domain.Record)}
	for subject, st := range initial {
		s.records[subject] = &domain.Record{Subject: subject, State: st, UpdatedAt: time.Now()}
	}

	return s
}

func (s *memStore) EnsureSchema(context.Context) error {
	return nil
}

func (s *memStore) Get(_ context.Context, subject string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[subject]
	if !ok {
		return nil, state.ErrNotFound
	}

	return rec.Clone(), nil
}

func (s *memStore) Set(ctx context.Context, subject string, st domain.State) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.setErr != nil {
		return nil, s.setErr
	}

	s.writes++
	rec := &domain.Record{Subject: subject, State: st, UpdatedAt: time.Now()}
	s.records[subject] = rec

	return rec.Clone(), nil
}

func (s *memStore) GetAll(_ context.Context, subjects []string) ([]*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Record

	for _, subject := range subjects {
		if rec, ok := s.records[subject]; ok {
			out = append(out, rec.Clone())
		}
	}

	return out, nil
}

func (s *memStore) state(subject string) domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[subject]; ok {
		return rec.State
	}

	return domain.StateUnknown
}

// scriptedCounter replays results; once exhausted it repeats the last one.
type scriptedCounter struct {
	mu      sync.Mutex
	script  []countResult
	calls   int
	zeroReq []bool
	times   []time.Time
}

type countResult struct {
	count int
	err   error
}

func counts(results ...any) *scriptedCounter {
	c := &scriptedCounter{}

	for _, r := range results {
		switch v := r.(type) {
		case int:
			c.script = append(c.script, countResult{count: v})
		case error:
			c.script = append(c.script, countResult{err: v})
		}
	}

	return c
}

func (c *scriptedCounter) Count(_ context.Context, _ []domain.Subject, confirmZero bool) (observer.ScanResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.script[min(c.calls, len(c.script)-1)]
	c.calls++
	c.zeroReq = append(c.zeroReq, confirmZero)
	c.times = append(c.times, time.Now())

	if r.err != nil {
		return observer.ScanResult{}, r.err
	}

	return observer.ScanResult{Count: r.count, Scanner: "fake"}, nil
}

func (c *scriptedCounter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

type scriptedReader struct {
	script [][]observer.HeartbeatSample
	err    error
	calls  int
}

func (r *scriptedReader) Observe(context.Context, []domain.Subject) ([]observer.HeartbeatSample, error) {
	if r.err != nil {
		err := r.err
		r.err = nil

		return nil, err
	}

	samples := r.script[min(r.calls, len(r.script)-1)]
	r.calls++

	return samples, nil
}

type event struct {
	name    string
	quiet   bool
	who     string
	changes []domain.Change
	ctxErr  error
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) callbacks() Callbacks {
	subject := func(name string) SubjectCallback {
		return func(ctx context.Context, quiet bool, who string) {
			r.add(event{name: name, quiet: quiet, who: who, ctxErr: ctx.Err()})
		}
	}

	combined := func(name string) CombinedCallback {
		return func(ctx context.Context, quiet bool, changes []domain.Change) {
			r.add(event{name: name, quiet: quiet, changes: changes, ctxErr: ctx.Err()})
		}
	}

	return Callbacks{
		OnHome:      subject("home"),
		OnAway:      subject("away"),
		OnFirstHome: combined("first_home"),
		OnLastAway:  combined("last_away"),
	}
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]event(nil), r.events...)
}

var errDiskFull = errors.New("disk full")

func testSettings() Settings {
	s := DefaultSettings()
	s.Subjects = []domain.Subject{
		{Alias: "aaron", Device: "aa:bb:cc:dd:ee:01"},
		{Alias: "bella", Device: "aa:bb:cc:dd:ee:02"},
	}

	return s
}
