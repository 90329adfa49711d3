package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	kv := NewFileKV(dir)
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "orders")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "orders", []byte(`[]`)), "creates missing directories")
	got, ok, err := kv.Get(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(got))

	_, err = os.Stat(filepath.Join(dir, "orders.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	require.NoError(t, kv.Delete(ctx, "orders"))
	require.NoError(t, kv.Delete(ctx, "orders"), "deleting twice is fine")
	_, ok, _ = kv.Get(ctx, "orders")
	assert.False(t, ok)
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'X'

	got, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
}

func TestRedisKV_PrefixesKeys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	kv := NewRedisKV(client, "brutalist:u1:")
	assert.Equal(t, "brutalist:u1:orders", kv.key(KeyOrders))
}
