package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	_, err = kv.Get(ctx, "rentdesk:session")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "rentdesk:session", `{"token":"a"}`, 0))
	got, err := kv.Get(ctx, "rentdesk:session")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"a"}`, got)

	// overwrite replaces the whole value
	require.NoError(t, kv.Set(ctx, "rentdesk:session", `{"token":"b"}`, 0))
	got, err = kv.Get(ctx, "rentdesk:session")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"b"}`, got)

	info, err := os.Stat(kv.Path("rentdesk:session"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, kv.Delete(ctx, "rentdesk:session"))
	require.NoError(t, kv.Delete(ctx, "rentdesk:session"), "delete must be idempotent")
	_, err = kv.Get(ctx, "rentdesk:session")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestFileKV_NoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, kv.Set(ctx, "k", "v", 0))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, kv.Delete(ctx, "k"))
	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNewRedisKVFromURL(t *testing.T) {
	kv, err := NewRedisKVFromURL("redis://localhost:6379/2")
	require.NoError(t, err)
	defer kv.Close()

	_, err = NewRedisKVFromURL("http://not-redis")
	assert.Error(t, err)
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	kv := NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer kv.Close()

	_, err := kv.Get(ctx, "rentdesk:session")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "rentdesk:session", `{"token":"a"}`, 0))
	got, err := kv.Get(ctx, "rentdesk:session")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"a"}`, got)
	assert.Equal(t, time.Duration(0), mr.TTL("rentdesk:session"))

	require.NoError(t, kv.Set(ctx, "rentdesk:session", `{"token":"b"}`, time.Minute))
	got, err = kv.Get(ctx, "rentdesk:session")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"b"}`, got)
	assert.Equal(t, time.Minute, mr.TTL("rentdesk:session"))

	require.NoError(t, kv.Delete(ctx, "rentdesk:session"))
	require.NoError(t, kv.Delete(ctx, "rentdesk:session"))
	_, err = kv.Get(ctx, "rentdesk:session")
	assert.ErrorIs(t, err, ErrMiss)
	assert.False(t, mr.Exists("rentdesk:session"))
}

func TestRedisKV_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	kv := NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer kv.Close()
	mr.Close()

	_, err = kv.Get(context.Background(), "rentdesk:session")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
