package heartbeat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jason790/lamplighter/internal/repository/sqlitedb"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	db, err := sqlitedb.Open(context.Background(), filepath.Join(t.TempDir(), "heartbeat.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	store := NewStore(db)
	require.NoError(t, store.EnsureSchema(context.Background()))

	return store
}

// TestStore_BeatAndLastSeen verifies the latest heartbeat wins and unknown keys are absent.
func TestStore_BeatAndLastSeen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	first := time.Unix(1_700_000_000, 0)
	require.NoError(t, store.Beat(ctx, "aaron", first))
	require.NoError(t, store.Beat(ctx, "aaron", first.Add(time.Minute)))
	require.NoError(t, store.Beat(ctx, "veronica", first))

	seen, err := store.LastSeen(ctx, []string{"aaron", "veronica", "guest"})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	require.True(t, seen["aaron"].Equal(first.Add(time.Minute)))
	require.True(t, seen["veronica"].Equal(first))

	_, ok := seen["guest"]
	require.False(t, ok)
}

// TestStore_Validation verifies empty keys are refused and empty lookups are cheap.
func TestStore_Validation(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	require.Error(t, store.Beat(context.Background(), "  ", time.Now()))

	seen, err := store.LastSeen(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, seen)
}

// TestOpen_RequiresPath checks the opener rejects an empty path.
func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := sqlitedb.Open(context.Background(), " ")
	require.Error(t, err)
}
