package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackitnow-backend/internal/types"
)

// setupMiniRedis starts a throwaway Redis server and a client bound to it.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewRedisClient(t *testing.T) {
	mr, _ := setupMiniRedis(t)
	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	assert.Error(t, err)
}

func TestRedisContextStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := setupMiniRedis(t)
	s := NewRedisContextStore(client, time.Hour)

	sc, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, sc)

	require.NoError(t, s.Set(ctx, "s1", SessionContext{KeyAwaitingCode: true, KeyTrackingCode: "ABC123"}))
	sc, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, sc.AwaitingCode())
	assert.Equal(t, "ABC123", sc.TrackingCode())
}

func TestRedisContextStore_Expires(t *testing.T) {
	ctx := context.Background()
	mr, client := setupMiniRedis(t)
	s := NewRedisContextStore(client, 5*time.Minute)

	require.NoError(t, s.Set(ctx, "s1", SessionContext{KeyAwaitingCode: true}))
	assert.Equal(t, 5*time.Minute, mr.TTL(sessionKeyPrefix+"s1"))

	mr.FastForward(6 * time.Minute)
	sc, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, sc.AwaitingCode())
}

func TestRedisContextStore_CorruptValue(t *testing.T) {
	mr, client := setupMiniRedis(t)
	require.NoError(t, mr.Set(sessionKeyPrefix+"bad", "{not json"))

	_, err := NewRedisContextStore(client, 0).Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisContextStore_Unavailable(t *testing.T) {
	mr, client := setupMiniRedis(t)
	s := NewRedisContextStore(client, 0)
	mr.Close()

	_, err := s.Get(context.Background(), "s1")
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), "s1", SessionContext{}))
}

func TestPositionStores(t *testing.T) {
	_, client := setupMiniRedis(t)
	stores := map[string]PositionStore{
		"memory": NewMemoryPositionStore(),
		"redis":  NewRedisPositionStore(client),
	}
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.ParcelPosition(ctx, "p1")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.CourierPositions(ctx, "c1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SetParcelPosition(ctx, "p1", types.Position{Latitude: 1, Longitude: 2, Timestamp: ts}))
			require.NoError(t, s.SetParcelPosition(ctx, "p1", types.Position{Latitude: 3, Longitude: 4, Timestamp: ts}))
			p, err := s.ParcelPosition(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, 3.0, p.Latitude)
			assert.Equal(t, 4.0, p.Longitude)
			assert.True(t, ts.Equal(p.Timestamp))

			require.NoError(t, s.AppendCourierPosition(ctx, "c1", types.Position{Latitude: 1, Longitude: 1, Timestamp: ts}))
			require.NoError(t, s.AppendCourierPosition(ctx, "c1", types.Position{Latitude: 2, Longitude: 2, Timestamp: ts.Add(time.Minute)}))
			ps, err := s.CourierPositions(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, ps, 2)
			assert.Equal(t, 1.0, ps[0].Latitude)
			assert.Equal(t, 2.0, ps[1].Latitude)
		})
	}
}
