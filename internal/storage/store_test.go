package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "meta.db"), filepath.Join(dir, "files"), "/files/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetOpen(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ref, err := store.Put(ctx, "booking/photos", "Rex.PNG", strings.NewReader("image-bytes"), 11)
	require.NoError(t, err)
	assert.Equal(t, "Rex.PNG", ref.Name)
	assert.Equal(t, int64(11), ref.SizeInBytes)
	assert.Equal(t, "/files/"+ref.ID, ref.PublicURL)
	assert.Equal(t, "booking/photos/"+ref.ID+".png", ref.PrivateURL)

	meta, err := store.Get(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "booking/photos", meta.Folder)

	rc, _, err := store.Open(ctx, ref.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestPut_KeepsFoldersInsideDir(t *testing.T) {
	store := openTestStore(t)
	ref, err := store.Put(context.Background(), "../../etc", "passwd", strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref.PrivateURL, "etc/"), ref.PrivateURL)
}

func TestGet_Unknown(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ref, err := store.Put(ctx, "booking/receipt", "r.pdf", strings.NewReader("pdf"), 3)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, ref.ID))

	_, err = store.Get(ctx, ref.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(filepath.Join(store.dir, filepath.FromSlash(ref.PrivateURL)))
	assert.True(t, os.IsNotExist(statErr))
	assert.ErrorIs(t, store.Delete(ctx, ref.ID), ErrNotFound)
}
