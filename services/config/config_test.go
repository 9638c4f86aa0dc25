package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration, defaults Settings) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cl := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = cl.Close()
	})
	return NewStore(cl, "test:settings", ttl, defaults), mr
}

func TestStore_LoadDefaults(t *testing.T) {
	s, _ := newTestStore(t, time.Minute, Settings{NsfwPrivate: true, Token: "flag-token"})

	st, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.False(t, st.SyncEnabled)
	assert.True(t, st.NsfwPrivate)
	assert.Equal(t, "flag-token", st.Token)
}

func TestStore_LoadOverrides(t *testing.T) {
	s, mr := newTestStore(t, time.Minute, Settings{Token: "flag-token"})
	mr.HSet("test:settings",
		fieldSyncEnabled, "true",
		fieldNsfwPrivate, "nope",
		fieldToken, " redis-token ",
		fieldProxyURL, "socks5://127.0.0.1:1080",
	)

	st, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.True(t, st.SyncEnabled)
	assert.False(t, st.NsfwPrivate)
	assert.Equal(t, "redis-token", st.Token)
	assert.Equal(t, "socks5://127.0.0.1:1080", st.ProxyURL)
}

func TestStore_SetThenLoad(t *testing.T) {
	s, _ := newTestStore(t, time.Minute, Settings{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, &Settings{SyncEnabled: true, NsfwPrivate: true, Token: "t"}))
	st, err := s.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, &Settings{SyncEnabled: true, NsfwPrivate: true, Token: "t"}, st)
}

func TestStore_GetIsCached(t *testing.T) {
	s, mr := newTestStore(t, time.Minute, Settings{})
	ctx := context.Background()

	st, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, st.SyncEnabled)

	mr.HSet("test:settings", fieldSyncEnabled, "true")

	st, err = s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, st.SyncEnabled)

	st, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, st.SyncEnabled)
}

func TestStore_WithoutRedis(t *testing.T) {
	s := NewStore(nil, "", time.Minute, Settings{SyncEnabled: true})
	st, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, st.SyncEnabled)
	assert.Error(t, s.Set(context.Background(), st))
}

func TestStore_LoadError(t *testing.T) {
	s, mr := newTestStore(t, time.Minute, Settings{})
	mr.Close()
	_, err := s.Load(context.Background())
	assert.Error(t, err)
}
