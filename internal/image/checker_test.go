package image

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-catalog-sync/internal/catalog/catalogtest"
	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/database/dbtest"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/repository"
	"github.com/fekuna/omnipos-catalog-sync/internal/storage"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01")
)

func TestPath(t *testing.T) {
	p, contentType, err := Path("storage/remote", 501, pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.True(t, strings.HasPrefix(p, "storage/remote/501-"))
	assert.True(t, strings.HasSuffix(p, ".png"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(p, "storage/remote/501-"), ".png"), 12)

	again, _, err := Path("storage/remote", 501, pngBytes)
	require.NoError(t, err)
	assert.Equal(t, p, again)

	other, _, err := Path("storage/remote", 501, jpegBytes)
	require.NoError(t, err)
	assert.NotEqual(t, p, other)

	_, _, err = Path("x", 1, []byte("just text"))
	assert.Error(t, err)
}

func TestChecker_StoresChangedImagesOnly(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.New(t))
	root := t.TempDir()

	current, _, err := Path("img", 102, jpegBytes)
	require.NoError(t, err)
	for _, row := range []database.Fields{
		{"name": "a", "remote_key_id": "101", "thumb_image": "placeholder.png"},
		{"name": "b", "remote_key_id": "102", "thumb_image": current},
		{"name": "c", "remote_key_id": "103", "thumb_image": "placeholder.png"},
		{"name": "d", "remote_key_id": "104", "thumb_image": "placeholder.png"},
	} {
		require.NoError(t, store.Insert(ctx, "products", row))
	}

	remote := catalogtest.New()
	remote.SetImage(101, pngBytes)
	remote.SetImage(102, jpegBytes)
	remote.SetImage(103, []byte("not an image"))

	c := NewChecker(repository.NewSQLRepository(store), remote, storage.NewLocalDisk(root), "img", logger.NewNop())
	res, err := c.Check(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Checked)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Errors)

	want, _, err := Path("img", 101, pngBytes)
	require.NoError(t, err)
	var thumb string
	require.NoError(t, store.DB.Get(&thumb, "SELECT thumb_image FROM products WHERE remote_key_id = '101'"))
	assert.Equal(t, want, thumb)
	assert.FileExists(t, filepath.Join(root, filepath.FromSlash(want)))

	require.NoError(t, store.DB.Get(&thumb, "SELECT thumb_image FROM products WHERE remote_key_id = '104'"))
	assert.Equal(t, "placeholder.png", thumb)

	res, err = c.Check(ctx, 20)
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
}

func TestChecker_RemoteFailure(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.New(t))
	require.NoError(t, store.Insert(ctx, "products", database.Fields{"name": "a", "remote_key_id": "101"}))

	remote := catalogtest.New()
	remote.FailOp(catalogtest.OpImages, 1, assert.AnError)

	c := NewChecker(repository.NewSQLRepository(store), remote, storage.NewLocalDisk(t.TempDir()), "img", logger.NewNop())
	_, err := c.Check(ctx, 20)
	assert.ErrorIs(t, err, assert.AnError)
}
