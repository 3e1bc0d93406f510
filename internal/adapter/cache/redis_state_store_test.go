package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/homeservice-site/internal/adapter/cache"
	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

func TestRedisStateStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := cache.NewRedisStateStore(client)
	ctx := context.Background()

	missing, err := store.GetState(ctx, "oauth:state:none")
	require.NoError(t, err)
	require.Nil(t, missing)

	state := integration.OAuthState{State: "abc", Service: integration.ServiceGoogle, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, store.SaveState(ctx, "oauth:state:abc", state, time.Minute))

	got, err := store.GetState(ctx, "oauth:state:abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "google", got.Service)
	require.True(t, state.CreatedAt.Equal(got.CreatedAt))

	mr.FastForward(2 * time.Minute)
	expired, err := store.GetState(ctx, "oauth:state:abc")
	require.NoError(t, err)
	require.Nil(t, expired)

	require.NoError(t, store.SaveState(ctx, "oauth:state:def", state, time.Minute))
	require.NoError(t, store.DeleteState(ctx, "oauth:state:def"))
	deleted, err := store.GetState(ctx, "oauth:state:def")
	require.NoError(t, err)
	require.Nil(t, deleted)
}
