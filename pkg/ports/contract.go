package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a Store
// implementation adheres to the port contract. newStore must return an empty
// store; it is called once per subtest.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("Get Missing User", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetUser(ctx, "telegram_404")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("Upsert Creates With Defaults", func(t *testing.T) {
		store := newStore(t)
		u, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{
			Source:    domain.Ptr("telegram"),
			FirstName: domain.Ptr("Ann"),
			Username:  domain.Ptr("ann"),
		})
		require.NoError(t, err)
		assert.Equal(t, "telegram_1", u.ID)
		assert.Equal(t, domain.RootNodeID, u.Progress)
		assert.True(t, u.IsActive)
		assert.False(t, u.RegisteredAt.IsZero())

		loaded, err := store.GetUser(ctx, "telegram_1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", loaded.FirstName)
		assert.Equal(t, "ann", loaded.Username)
		assert.Equal(t, "telegram", loaded.Source)
		assert.Equal(t, u.RegisteredAt.UnixMilli(), loaded.RegisteredAt.UnixMilli())
	})

	t.Run("Upsert Merges Supplied Fields", func(t *testing.T) {
		store := newStore(t)
		_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{
			Source:    domain.Ptr("telegram"),
			FirstName: domain.Ptr("Ann"),
		})
		require.NoError(t, err)

		u, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{
			Progress:  domain.Ptr(4),
			AnchorRef: domain.Ptr("msg-9"),
			IsActive:  domain.Ptr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, 4, u.Progress)
		assert.Equal(t, "msg-9", u.AnchorRef)
		assert.False(t, u.IsActive)
		assert.Equal(t, "Ann", u.FirstName, "untouched fields survive")
		assert.Equal(t, "telegram", u.Source)
	})

	t.Run("Set Progress", func(t *testing.T) {
		store := newStore(t)
		_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{})
		require.NoError(t, err)

		require.NoError(t, store.SetProgress(ctx, "telegram_1", -2))
		u, err := store.GetUser(ctx, "telegram_1")
		require.NoError(t, err)
		assert.Equal(t, -2, u.Progress)

		err = store.SetProgress(ctx, "telegram_404", 3)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("Answers Are Ordered", func(t *testing.T) {
		store := newStore(t)
		_, err := store.LastAnswer(ctx, "telegram_1")
		assert.ErrorIs(t, err, domain.ErrNoAnswers)

		first, err := store.AppendAnswer(ctx, "telegram_1", 1, "yes")
		require.NoError(t, err)
		second, err := store.AppendAnswer(ctx, "telegram_1", 2, "no")
		require.NoError(t, err)
		_, err = store.AppendAnswer(ctx, "telegram_2", 1, "other user")
		require.NoError(t, err)

		assert.Greater(t, second.ID, first.ID)
		assert.False(t, second.AnsweredAt.Before(first.AnsweredAt), "answered_at is monotonic")

		last, err := store.LastAnswer(ctx, "telegram_1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, last.ID)
		assert.Equal(t, 2, last.QuestionID)
		assert.Equal(t, "no", last.Text)

		all, err := store.Answers(ctx, "telegram_1")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "yes", all[0].Text)
		assert.Equal(t, "no", all[1].Text)
	})

	t.Run("Find By Username", func(t *testing.T) {
		store := newStore(t)
		_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{Username: domain.Ptr("ann")})
		require.NoError(t, err)

		u, err := store.FindByUsername(ctx, "ann")
		require.NoError(t, err)
		assert.Equal(t, "telegram_1", u.ID)

		_, err = store.FindByUsername(ctx, "bob")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("List Active Users Of Source", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "telegram_1", "telegram", 1, true)
		seed(t, store, "telegram_2", "telegram", 3, false)
		seed(t, store, "telegram_3", "telegram", 0, true)
		seed(t, store, "web_1", "web", 2, true)

		ids, err := store.ListUserIDs(ctx, "telegram")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"telegram_1", "telegram_3"}, ids)
	})

	t.Run("Aggregate Counts", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "telegram_1", "telegram", 1, true)
		seed(t, store, "telegram_2", "telegram", 3, false)
		seed(t, store, "telegram_3", "telegram", 0, true)
		seed(t, store, "web_1", "web", -2, true)

		counts, err := store.AggregateCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, counts.Total)
		assert.Equal(t, map[string]int{"telegram": 3, "web": 1}, counts.BySource)
		assert.Equal(t, 2, counts.Incomplete)
		assert.Equal(t, 3, counts.Active)
		assert.Equal(t, 1, counts.Blocked)
	})

	t.Run("Dump", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "telegram_1", "telegram", 2, true)
		_, err := store.AppendAnswer(ctx, "telegram_1", 1, "yes")
		require.NoError(t, err)

		tables, err := store.Dump(ctx)
		require.NoError(t, err)
		require.Len(t, tables, 2)

		assert.Equal(t, "users", tables[0].Name)
		assert.Equal(t, UserColumns, tables[0].Header)
		require.Len(t, tables[0].Rows, 1)
		assert.Equal(t, "telegram_1", tables[0].Rows[0][0])

		assert.Equal(t, "answers", tables[1].Name)
		assert.Equal(t, AnswerColumns, tables[1].Header)
		require.Len(t, tables[1].Rows, 1)
		assert.Equal(t, "yes", tables[1].Rows[0][3])
	})

	t.Run("Concurrent Upserts Do Not Lose Fields", func(t *testing.T) {
		store := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{FirstName: domain.Ptr("Ann")})
				assert.NoError(t, err)
			}(i)
			go func(i int) {
				defer wg.Done()
				_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{Username: domain.Ptr(fmt.Sprintf("ann%d", i%1))})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		u, err := store.GetUser(ctx, "telegram_1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", u.FirstName)
		assert.Equal(t, "ann0", u.Username)
	})
}

func seed(t *testing.T, store Store, id, source string, progress int, active bool) {
	t.Helper()
	_, err := store.UpsertUser(context.Background(), id, domain.UserPatch{
		Source:   domain.Ptr(source),
		Progress: domain.Ptr(progress),
		IsActive: domain.Ptr(active),
	})
	require.NoError(t, err)
}
