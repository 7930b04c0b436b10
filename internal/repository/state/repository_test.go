package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/repository/sqlitedb"
)

// frozenClock always returns the same instant, forcing the monotonic bump.
func frozenClock() func() time.Time {
	ts := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	return func() time.Time { return ts }
}

// repositories returns every implementation wired to a temporary location.
func repositories(t *testing.T, opts ...Option) map[string]Repository {
	t.Helper()

	dir := t.TempDir()

	db, err := sqlitedb.Open(context.Background(), filepath.Join(dir, "state.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	repos := map[string]Repository{
		"file":   NewFileRepository(filepath.Join(dir, "nested", "state.json"), opts...),
		"sqlite": NewSQLiteRepository(db, opts...),
	}

	for _, repo := range repos {
		require.NoError(t, repo.EnsureSchema(context.Background()))
		// Idempotent.
		require.NoError(t, repo.EnsureSchema(context.Background()))
	}

	return repos
}

// TestRepository_NotFound verifies Get returns ErrNotFound for a subject without record.
func TestRepository_NotFound(t *testing.T) {
	t.Parallel()

	for name, repo := range repositories(t) {
		record, err := repo.Get(context.Background(), "aaron")
		require.ErrorIs(t, err, ErrNotFound, name)
		require.Nil(t, record, name)
	}
}

// TestRepository_SetGet ensures Set followed by Get returns the stored record.
func TestRepository_SetGet(t *testing.T) {
	t.Parallel()

	for name, repo := range repositories(t) {
		ctx := context.Background()

		saved, err := repo.Set(ctx, "aaron", domain.StateHome)
		require.NoError(t, err, name)

		got, err := repo.Get(ctx, "aaron")
		require.NoError(t, err, name)
		require.Equal(t, domain.StateHome, got.State, name)
		require.True(t, saved.UpdatedAt.Equal(got.UpdatedAt), name)

		_, err = repo.Set(ctx, "aaron", domain.StateAway)
		require.NoError(t, err, name)

		got, err = repo.Get(ctx, "aaron")
		require.NoError(t, err, name)
		require.Equal(t, domain.StateAway, got.State, name)
	}
}

// TestRepository_SetIsIdempotentAndMonotonic checks that setting the same state twice
// keeps the state but strictly increases updated_at, even with a frozen clock.
func TestRepository_SetIsIdempotentAndMonotonic(t *testing.T) {
	t.Parallel()

	for name, repo := range repositories(t, WithClock(frozenClock())) {
		ctx := context.Background()

		first, err := repo.Set(ctx, "aaron", domain.StateHome)
		require.NoError(t, err, name)

		second, err := repo.Set(ctx, "aaron", domain.StateHome)
		require.NoError(t, err, name)

		require.Equal(t, first.State, second.State, name)
		require.True(t, second.UpdatedAt.After(first.UpdatedAt), name)

		got, err := repo.Get(ctx, "aaron")
		require.NoError(t, err, name)
		require.True(t, got.UpdatedAt.Equal(second.UpdatedAt), name)
	}
}

// TestRepository_GetAll verifies only known subjects with records are returned, in order.
func TestRepository_GetAll(t *testing.T) {
	t.Parallel()

	for name, repo := range repositories(t) {
		ctx := context.Background()

		_, err := repo.Set(ctx, "veronica", domain.StateAway)
		require.NoError(t, err, name)
		_, err = repo.Set(ctx, "aaron", domain.StateHome)
		require.NoError(t, err, name)
		_, err = repo.Set(ctx, "guest", domain.StateHome)
		require.NoError(t, err, name)

		records, err := repo.GetAll(ctx, []string{"aaron", "veronica", "nobody"})
		require.NoError(t, err, name)
		require.Len(t, records, 2, name)
		require.Equal(t, "aaron", records[0].Subject, name)
		require.Equal(t, domain.StateHome, records[0].State, name)
		require.Equal(t, "veronica", records[1].Subject, name)
		require.Equal(t, domain.StateAway, records[1].State, name)

		records, err = repo.GetAll(ctx, nil)
		require.NoError(t, err, name)
		require.Empty(t, records, name)
	}
}

// TestRepository_RejectsInvalidInput verifies unknown states and empty subjects are refused.
func TestRepository_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	for name, repo := range repositories(t) {
		_, err := repo.Set(context.Background(), "aaron", domain.StateUnknown)
		require.Error(t, err, name)

		_, err = repo.Set(context.Background(), "", domain.StateHome)
		require.Error(t, err, name)
	}
}

// TestFileRepository_CorruptFile verifies decode errors are surfaced instead of treated as empty.
func TestFileRepository_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	repo := NewFileRepository(path)

	_, err := repo.Get(context.Background(), "aaron")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// TestFileRepository_Layout verifies the document is protobuf JSON keyed by subject.
func TestFileRepository_Layout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(path, WithClock(frozenClock()))

	_, err := repo.Set(context.Background(), "aaron", domain.StateHome)
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc structpb.Struct
	require.NoError(t, protojson.Unmarshal(contents, &doc))

	entry := doc.GetFields()["subjects"].GetStructValue().GetFields()["aaron"].GetStructValue().GetFields()
	require.Equal(t, "home", entry["state"].GetStringValue())
	require.Equal(t, "2024-03-10T12:00:00Z", entry["updated_at"].GetStringValue())
}

// TestFileRepository_BadTimestamp verifies a malformed updated_at is a decode error.
func TestFileRepository_BadTimestamp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	contents := `{"subjects": {"aaron": {"state": "home", "updated_at": "yesterday"}}}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, err := NewFileRepository(path).Get(context.Background(), "aaron")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
