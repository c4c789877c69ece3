package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/sqlite"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, func(t *testing.T) ports.Store {
		return openStore(t, filepath.Join(t.TempDir(), "intake.db"))
	})
}

func TestSQLiteStore_OpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "intake.db")

	store, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	_, err = store.UpsertUser(ctx, "telegram_7", domain.UserPatch{Progress: domain.Ptr(5)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	u, err := reopened.GetUser(ctx, "telegram_7")
	require.NoError(t, err)
	assert.Equal(t, 5, u.Progress)
}

func TestSQLiteStore_MillisecondTimestamps(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	store := openStore(t, filepath.Join(t.TempDir(), "intake.db"),
		sqlite.WithClock(func() time.Time { return at }))

	u, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, at.Truncate(time.Millisecond), u.RegisteredAt)

	a, err := store.AppendAnswer(ctx, "telegram_1", 1, "yes")
	require.NoError(t, err)
	b, err := store.AppendAnswer(ctx, "telegram_1", 2, "no")
	require.NoError(t, err)
	assert.Equal(t, a.AnsweredAt, b.AnsweredAt)

	last, err := store.LastAnswer(ctx, "telegram_1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, last.ID)
}
