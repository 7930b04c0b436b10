package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

// SQLiteRepository persists presence records in the presence_state table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an open database handle.
// The caller owns the handle.
func NewSQLiteRepository(db *sql.DB, opts ...Option) *SQLiteRepository {
	o := newOptions(opts)

	return &SQLiteRepository{
		db:  db,
		now: o.now,
	}
}

// EnsureSchema creates the presence_state table if it does not exist.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS presence_state (
			subject    TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure presence_state table: %w", err)
	}

	return nil
}

// Get returns the record of subject.
func (r *SQLiteRepository) Get(ctx context.Context, subject string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT subject, state, updated_at FROM presence_state WHERE subject = ?`, subject)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get state of %s: %w", subject, err)
	}

	return record, nil
}

// Set upserts the state of subject. updated_at never goes backwards even if
// the wall clock does.
func (r *SQLiteRepository) Set(ctx context.Context, subject string, state domain.State) (*domain.Record, error) {
	if err := validateSet(subject, state); err != nil {
		return nil, err
	}

	var updatedAt int64

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO presence_state (subject, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (subject) DO UPDATE SET
			state      = excluded.state,
			updated_at = MAX(excluded.updated_at, presence_state.updated_at + 1)
		RETURNING updated_at`,
		subject, string(state), r.now().UnixNano(),
	).Scan(&updatedAt)
	if err != nil {
		return nil, fmt.Errorf("set state of %s: %w", subject, err)
	}

	return &domain.Record{
		Subject:   subject,
		State:     state,
		UpdatedAt: time.Unix(0, updatedAt),
	}, nil
}

// GetAll returns the records of the given subjects.
func (r *SQLiteRepository) GetAll(ctx context.Context, subjects []string) ([]*domain.Record, error) {
	if len(subjects) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(subjects)), ", ")
	args := make([]any, 0, len(subjects))

	for _, s := range subjects {
		args = append(args, s)
	}

	//nolint:gosec // Only placeholders are interpolated.
	query := `SELECT subject, state, updated_at FROM presence_state WHERE subject IN (` + placeholders + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	bySubject := make(map[string]*domain.Record, len(subjects))

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}

		bySubject[record.Subject] = record
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate states: %w", err)
	}

	// Keep the caller's order.
	records := make([]*domain.Record, 0, len(bySubject))

	for _, s := range subjects {
		if record, ok := bySubject[s]; ok {
			records = append(records, record)
		}
	}

	return records, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var (
		subject   string
		rawState  string
		updatedAt int64
	)

	if err := row.Scan(&subject, &rawState, &updatedAt); err != nil {
		return nil, err
	}

	state, err := domain.ParseState(rawState)
	if err != nil {
		return nil, err
	}

	return &domain.Record{
		Subject:   subject,
		State:     state,
		UpdatedAt: time.Unix(0, updatedAt),
	}, nil
}
