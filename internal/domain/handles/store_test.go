package handles

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-sizer-go/internal/platform/storage"
)

func newMemory(t *testing.T, ttl time.Duration) Store {
	s := NewMemory(Config{TTL: ttl})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func newSQLite(t *testing.T, ttl time.Duration) Store {
	t.Helper()
	db, err := storage.Open(fmt.Sprintf("file:handles-test-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	require.NoError(t, err)
	s, err := NewSQLite(db, Config{TTL: ttl})
	require.NoError(t, err)
	return s
}

func newRedis(t *testing.T, ttl time.Duration) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedis(Config{TTL: ttl, Redis: &RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mr
}

func drivers(t *testing.T) map[string]Store {
	r, _ := newRedis(t, time.Hour)
	return map[string]Store{
		DriverMemory: newMemory(t, time.Hour),
		DriverSQLite: newSQLite(t, time.Hour),
		DriverRedis:  r,
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.Put(ctx, Handle{JobID: "job-1", Filename: "a.png", ContentType: "image/png", Data: []byte("aaa")})
			require.NoError(t, err)
			assert.NotEmpty(t, a.ID)
			assert.False(t, a.CreatedAt.IsZero())
			assert.True(t, a.ExpiresAt.After(a.CreatedAt))

			b, err := s.Put(ctx, Handle{JobID: "job-1", Filename: "b.ico", ContentType: "image/x-icon", Data: []byte("bbb"),
				CreatedAt: a.CreatedAt.Add(time.Millisecond)})
			require.NoError(t, err)
			_, err = s.Put(ctx, Handle{JobID: "job-2", Filename: "c.png", Data: []byte("c")})
			require.NoError(t, err)

			got, err := s.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, []byte("aaa"), got.Data)
			assert.Equal(t, "a.png", got.Filename)
			assert.Equal(t, "job-1", got.JobID)

			list, err := s.List(ctx, "job-1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, a.ID, list[0].ID)
			assert.Equal(t, b.ID, list[1].ID)
			assert.Nil(t, list[0].Data)

			require.NoError(t, s.Release(ctx, a.ID))
			require.NoError(t, s.Release(ctx, a.ID), "release is idempotent")
			_, err = s.Get(ctx, a.ID)
			assert.True(t, errors.Is(err, ErrNotFound))

			n, err := s.ReleaseJob(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			n, err = s.ReleaseJob(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			list, err = s.List(ctx, "job-2")
			require.NoError(t, err)
			assert.Len(t, list, 1, "other jobs are untouched")

			stats, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, name, stats["type"])
		})
	}
}

func TestStore_RequiresJobID(t *testing.T) {
	for name, s := range drivers(t) {
		_, err := s.Put(context.Background(), Handle{Filename: "x"})
		assert.Error(t, err, name)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := newMemory(t, time.Hour)

	h, err := s.Put(ctx, Handle{JobID: "j", ExpiresAt: time.Now().Add(-time.Second), CreatedAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	_, err = s.Get(ctx, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CleanupExpired(ctx))
	stats, _ := s.Stats(ctx)
	assert.Equal(t, 0, stats["total"])
}

func TestSQLiteStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t, time.Hour)

	h, err := s.Put(ctx, Handle{JobID: "j", Data: []byte("x"), ExpiresAt: time.Now().Add(-time.Second), CreatedAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	_, err = s.Get(ctx, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx, "j")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.CleanupExpired(ctx))
	stats, _ := s.Stats(ctx)
	assert.Equal(t, int64(0), stats["total"])
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t, time.Minute)

	h, err := s.Put(ctx, Handle{JobID: "j", Data: []byte("x")})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = s.Get(ctx, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	list, err := s.List(ctx, "j")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(Config{Redis: &RedisConfig{Addr: "127.0.0.1:1"}})
	assert.Error(t, err)

	_, err = NewRedis(Config{})
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	s, err := New(Config{}, Dependencies{})
	require.NoError(t, err)
	stats, _ := s.Stats(context.Background())
	assert.Equal(t, DriverMemory, stats["type"])
	_ = s.Close(context.Background())

	_, err = New(Config{Driver: DriverSQLite}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{Driver: "etcd"}, Dependencies{})
	assert.Error(t, err)
}
