package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

func samplePlaces() []model.RawResult {
	return []model.RawResult{
		{PlaceID: "p1", Name: "Sweet Crumbs", Address: "MG Road, Pune", Phone: model.Ptr("+91 20 1234 5678"), Rating: model.Ptr(4.5)},
		{PlaceID: "p2", Name: "Daily Bread", Address: "FC Road, Pune"},
	}
}

// storeSuite exercises the Store contract shared by every backend.
func storeSuite(t *testing.T, s Store) {
	ctx := context.Background()
	created := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("missing", func(t *testing.T) {
		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		e := &Entry{
			Key: "k1", Keyword: "Bakery", Location: "Pune",
			Places: samplePlaces(), ResultsCount: 2,
			CreatedAt: created, LastAccessAt: created, ExpiresAt: created.Add(DefaultTTL),
		}
		require.NoError(t, s.Put(ctx, e))

		got, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "Bakery", got.Keyword)
		assert.Equal(t, 2, got.ResultsCount)
		assert.True(t, created.Equal(got.CreatedAt))
		require.Len(t, got.Places, 2)
		assert.Equal(t, "p1", got.Places[0].PlaceID)
		require.NotNil(t, got.Places[0].Phone)
		assert.Equal(t, "+91 20 1234 5678", *got.Places[0].Phone)
		assert.Nil(t, got.Places[1].Phone)
	})

	t.Run("touch", func(t *testing.T) {
		at := created.Add(time.Hour)
		require.NoError(t, s.Touch(ctx, "k1", at))
		require.NoError(t, s.Touch(ctx, "k1", at))
		got, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.HitCount)
		assert.True(t, at.Equal(got.LastAccessAt))
	})

	t.Run("put overwrites", func(t *testing.T) {
		later := created.Add(24 * time.Hour)
		require.NoError(t, s.Put(ctx, &Entry{
			Key: "k1", Keyword: "bakery", Location: "pune",
			Places: samplePlaces()[:1], ResultsCount: 1,
			CreatedAt: later, LastAccessAt: later, ExpiresAt: later.Add(DefaultTTL),
		}))
		got, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.HitCount)
		assert.Equal(t, 1, got.ResultsCount)
		assert.Len(t, got.Places, 1)
		assert.True(t, later.Equal(got.CreatedAt))
	})

	t.Run("expire", func(t *testing.T) {
		require.NoError(t, s.Expire(ctx, "k1"))
		got, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, got.Cleared())
		assert.ErrorIs(t, s.Expire(ctx, "absent"), ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	storeSuite(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()
	storeSuite(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer s.Close()
	storeSuite(t, s)

	assert.True(t, mr.Exists(redisKeyPrefix+"k1"))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("LEADFINDER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEADFINDER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, `DELETE FROM search_cache WHERE cache_key IN ('k1')`)
	require.NoError(t, err)
	storeSuite(t, s)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("Bakery", "Pune"), Key("  bakery ", "PUNE"))
	assert.NotEqual(t, Key("bakery", "pune"), Key("bakery", "mumbai"))
	assert.Len(t, Key("a", "b"), 64)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestManagerTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), nil, WithClock(clock.Now))

	_, err := m.Put(ctx, "bakery", "Pune", samplePlaces())
	require.NoError(t, err)
	key := Key("bakery", "Pune")

	clock.Advance(6 * 24 * time.Hour)
	e, ok := m.Get(ctx, key)
	require.True(t, ok)
	assert.Len(t, e.Places, 2)
	assert.Equal(t, int64(1), e.HitCount)

	clock.Advance(2 * 24 * time.Hour)
	_, ok = m.Get(ctx, key)
	assert.False(t, ok)
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), nil)

	_, err := m.Put(ctx, "bakery", "Pune", samplePlaces())
	require.NoError(t, err)
	key := Key("bakery", "Pune")

	_, ok := m.Get(ctx, key)
	require.True(t, ok)

	require.NoError(t, m.Clear(ctx, key))
	_, ok = m.Get(ctx, key)
	assert.False(t, ok)

	e, err := m.Lookup(ctx, key)
	require.NoError(t, err)
	assert.True(t, e.Cleared())

	_, err = m.Put(ctx, "bakery", "Pune", samplePlaces()[:1])
	require.NoError(t, err)
	e, ok = m.Get(ctx, key)
	require.True(t, ok)
	assert.Len(t, e.Places, 1)
	assert.Equal(t, int64(1), e.HitCount)
}

func TestManagerPutEmpty(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), nil)

	e, err := m.Put(ctx, "unobtainium", "Atlantis", nil)
	require.NoError(t, err)
	assert.NotNil(t, e.Places)
	assert.Equal(t, 0, e.ResultsCount)

	got, ok := m.Get(ctx, e.Key)
	require.True(t, ok)
	assert.Empty(t, got.Places)
}

type brokenStore struct{ MemoryStore }

func (brokenStore) Get(context.Context, string) (*Entry, error) {
	return nil, assert.AnError
}

func TestManagerStoreFailureIsMiss(t *testing.T) {
	m := NewManager(&brokenStore{}, nil)
	_, ok := m.Get(context.Background(), "k")
	assert.False(t, ok)
}
