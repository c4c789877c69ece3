package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, func(t *testing.T) ports.Store {
		return memory.NewStore()
	})
}

func TestMemoryStore_FrozenClockTieBreak(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	_, err := store.AppendAnswer(ctx, "telegram_1", 1, "first")
	require.NoError(t, err)
	second, err := store.AppendAnswer(ctx, "telegram_1", 2, "second")
	require.NoError(t, err)

	last, err := store.LastAnswer(ctx, "telegram_1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID, "same timestamp falls back to insertion order")
}
