package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, func(t *testing.T) ports.Store {
		_, client := newClient(t)
		return redis.NewFromClient(client)
	})
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{Username: domain.Ptr("ann")})
	require.NoError(t, err)
	_, err = store.AppendAnswer(ctx, "telegram_1", 1, "yes")
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:user:telegram_1"), "user hash uses the prefix")
	assert.True(t, mr.Exists("custom:app:users"), "registration list uses the prefix")
	assert.True(t, mr.Exists("custom:app:answer:1"), "answer hash uses the prefix")
	assert.Equal(t, "ann", mr.HGet("custom:app:user:telegram_1", "username"))
}

func TestRedisStore_AnsweredAtNeverDecreases(t *testing.T) {
	_, client := newClient(t)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := redis.NewFromClient(client, redis.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	first, err := store.AppendAnswer(ctx, "telegram_1", 1, "yes")
	require.NoError(t, err)

	clock = clock.Add(-time.Hour)
	second, err := store.AppendAnswer(ctx, "telegram_1", 2, "no")
	require.NoError(t, err)

	assert.Equal(t, first.AnsweredAt, second.AnsweredAt)
	last, err := store.LastAnswer(ctx, "telegram_1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)
}

func TestRedisStore_DefaultPrefixSharesHashSlot(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{Username: domain.Ptr("ann")})
	require.NoError(t, err)
	_, err = store.AppendAnswer(ctx, "telegram_1", 1, "yes")
	require.NoError(t, err)

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "{intake}:"), "key %s outside the hash tag", k)
	}
	assert.True(t, mr.Exists("{intake}:answer:1"))
}
