package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsset_PutThenDeleteIsAbsent(t *testing.T) {
	dir := t.TempDir()
	a := NewAsset(dir)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "posts/attachments/post1/data1-1", []byte("hello")))
	got, err := os.ReadFile(filepath.Join(dir, "posts/attachments/post1/data1-1"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	require.NoError(t, a.Delete(ctx, "posts/attachments/post1/data1-1"))
	require.NoError(t, a.Delete(ctx, "posts/attachments/post1/data1-1")) // absent-key delete is not an error
}

func TestKv_WriteMultipleThenDeleteMultiple(t *testing.T) {
	dir := t.TempDir()
	kv := NewKv(dir)
	ctx := context.Background()

	require.NoError(t, kv.WriteMultiple(ctx, "sessions", map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}))
	got, err := os.ReadFile(filepath.Join(dir, "sessions", "a"))
	require.NoError(t, err)
	require.Equal(t, "1", string(got))

	require.NoError(t, kv.DeleteMultiple(ctx, "sessions", []string{"a", "missing"}))
	_, err = os.Stat(filepath.Join(dir, "sessions", "a"))
	require.True(t, os.IsNotExist(err))
}

func TestObjectStore_PutOverwritesThenDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewObjectStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "assets", "posts/cover/post1.png", "image/png", []byte("v1")))
	require.NoError(t, store.Put(ctx, "assets", "posts/cover/post1.png", "image/png", []byte("v2")))
	got, err := os.ReadFile(filepath.Join(dir, "assets", "posts/cover/post1.png"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	require.NoError(t, store.Delete(ctx, "assets", "posts/cover/post1.png"))
	require.NoError(t, store.Delete(ctx, "assets", "posts/cover/post1.png"))
}
