package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/assetgw/internal/model"
	appErr "github.com/xxxsen/assetgw/internal/pkg/errors"
)

func newTestLocalStore(t *testing.T) (*localStore, string) {
	t.Helper()
	dir := t.TempDir()
	now := time.UnixMilli(1700000000000)
	return &localStore{
		dir:       dir,
		publicURL: "/files",
		now:       func() time.Time { return now },
	}, dir
}

func TestLocalStoreSaveListRemove(t *testing.T) {
	store, dir := newTestLocalStore(t)
	ctx := context.Background()

	asset, err := store.Save(ctx, "uploads", &model.Upload{Name: "cat.png", Data: pngBytes(t, 4, 5)})
	require.NoError(t, err)
	require.Equal(t, "uploads/1700000000000-cat.png", asset.ID)
	require.Equal(t, "/files/uploads/1700000000000-cat.png", asset.URL)
	require.Equal(t, "cat.png", asset.DisplayName)
	require.Equal(t, "image/png", asset.ContentType)
	require.Equal(t, 4, asset.Width)
	require.Equal(t, 5, asset.Height)
	require.FileExists(t, filepath.Join(dir, "uploads", "1700000000000-cat.png"))

	res, err := store.List(ctx, "uploads", 50)
	require.NoError(t, err)
	require.Empty(t, res.Error)
	require.Len(t, res.Files, 1)
	require.Equal(t, asset.ID, res.Files[0].ID)
	require.Equal(t, "cat.png", res.Files[0].DisplayName)

	require.NoError(t, store.Remove(ctx, asset.ID))
	res, err = store.List(ctx, "uploads", 50)
	require.NoError(t, err)
	require.Empty(t, res.Files)
}

func TestLocalStoreDisplayNameIsStable(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	asset, err := store.Save(ctx, "uploads", &model.Upload{Name: "my cat.png", Data: []byte("x")})
	require.NoError(t, err)
	require.Equal(t, "my_cat.png", asset.DisplayName)

	res, err := store.List(ctx, "uploads", 50)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	require.Equal(t, asset.DisplayName, res.Files[0].DisplayName)
}

func TestLocalStoreSameMillisecondDoesNotOverwrite(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()
	first, err := store.Save(ctx, "uploads", &model.Upload{Name: "a.txt", Data: []byte("one")})
	require.NoError(t, err)
	second, err := store.Save(ctx, "uploads", &model.Upload{Name: "a.txt", Data: []byte("two")})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	res, err := store.List(ctx, "uploads", 50)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	require.Equal(t, first.ID, res.Files[0].ID)
}

func TestLocalStoreListLimitAndEmpty(t *testing.T) {
	store, dir := newTestLocalStore(t)
	ctx := context.Background()

	res, err := store.List(ctx, "uploads", 50)
	require.NoError(t, err)
	require.NotNil(t, res.Files)
	require.Empty(t, res.Files)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "uploads", "nested"), 0o755))
	for _, name := range []string{"1-a.png", "2-b.png", "3-c.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "uploads", name), []byte("x"), 0o644))
	}
	res, err = store.List(ctx, "uploads", 2)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	require.Equal(t, "uploads/1-a.png", res.Files[0].ID)
	require.Equal(t, "a.png", res.Files[0].DisplayName)
}

func TestLocalStoreListUnreadableDirDegrades(t *testing.T) {
	store, dir := newTestLocalStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uploads"), []byte("not a dir"), 0o644))

	res, err := store.List(context.Background(), "uploads", 50)
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.Contains(t, res.Error, "failed to read upload directory")
}

func TestLocalStoreRemoveErrors(t *testing.T) {
	store, dir := newTestLocalStore(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "uploads"), 0o755))

	err := store.Remove(ctx, "uploads/missing.png")
	require.True(t, appErr.IsNotFound(err))

	err = store.Remove(ctx, "uploads")
	require.True(t, appErr.IsNotFound(err))

	err = store.Remove(ctx, "../outside.png")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
