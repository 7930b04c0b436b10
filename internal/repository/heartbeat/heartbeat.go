// Package heartbeat reads and writes liveness timestamps in the shared
// heartbeats table. Each row holds the last time a key checked in.
package heartbeat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// errKeyRequired is returned when Beat is called with an empty key.
var errKeyRequired = errors.New("heartbeat key must be provided")

// Store is a SQLite-backed heartbeat table.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle. The caller owns the handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the heartbeats table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS heartbeats (
			who TEXT PRIMARY KEY,
			ts  INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure heartbeats table: %w", err)
	}

	return nil
}

// Beat records that key was alive at the given time.
func (s *Store) Beat(ctx context.Context, key string, at time.Time) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errKeyRequired
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO heartbeats (who, ts) VALUES (?, ?)
		ON CONFLICT (who) DO UPDATE SET ts = excluded.ts`,
		key, at.Unix())
	if err != nil {
		return fmt.Errorf("record heartbeat of %s: %w", key, err)
	}

	return nil
}

// LastSeen returns the latest heartbeat of each key. Keys that never checked in are absent.
func (s *Store) LastSeen(ctx context.Context, keys []string) (map[string]time.Time, error) {
	seen := make(map[string]time.Time, len(keys))
	if len(keys) == 0 {
		return seen, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	args := make([]any, 0, len(keys))

	for _, k := range keys {
		args = append(args, k)
	}

	//nolint:gosec // Only placeholders are interpolated.
	query := `SELECT who, ts FROM heartbeats WHERE who IN (` + placeholders + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query heartbeats: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			who string
			ts  int64
		)

		if err = rows.Scan(&who, &ts); err != nil {
			return nil, fmt.Errorf("scan heartbeat: %w", err)
		}

		seen[who] = time.Unix(ts, 0)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heartbeats: %w", err)
	}

	return seen, nil
}
