package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a miniredis instance and returns a connected RedisStore.
func setupTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})

	return store, mr
}

func TestNewRedisStore(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()

		store, err := NewRedisStore(RedisOptions{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisStore(RedisOptions{URL: "not-a-url"})
		assert.Error(t, err)
	})
}

func TestRedisStorePutGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	ticket := Ticket{
		Value:    "TICKET_abc123",
		Username: "admin",
		IssuedAt: time.Now().Truncate(time.Second),
	}

	require.NoError(t, store.Put(ctx, ticket, time.Hour))

	got, err := store.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, ticket.Value, got.Value)
	assert.Equal(t, ticket.Username, got.Username)
	assert.True(t, ticket.IssuedAt.Equal(got.IssuedAt))
}

func TestRedisStoreGetMissing(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorePutInvalid(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	err := store.Put(ctx, Ticket{Username: "admin"}, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	err = store.Put(ctx, Ticket{Value: "TICKET_abc"}, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	ticket := Ticket{Value: "TICKET_short", Username: "admin"}
	require.NoError(t, store.Put(ctx, ticket, time.Second))

	mr.FastForward(2 * time.Second)

	_, err := store.Get(ctx, "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	ticket := Ticket{Value: "TICKET_del", Username: "admin"}
	require.NoError(t, store.Put(ctx, ticket, time.Hour))
	require.NoError(t, store.Delete(ctx, "admin"))

	_, err := store.Get(ctx, "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	store, err := NewRedisStore(RedisOptions{
		URL:       fmt.Sprintf("redis://%s", mr.Addr()),
		KeyPrefix: "custom",
	})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Ticket{Value: "T", Username: "u"}, time.Hour))
	assert.True(t, mr.Exists("custom:session:u"))
}
