package cache_test

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"boulder/internal/pkg/cache"
)

func TestAssetPathSharded(t *testing.T) {
	root := t.TempDir()
	store := cache.New(root)

	path, err := store.AssetPath("abcdef0123456789")
	assert.NilError(t, err)
	assert.Equal(t, path, filepath.Join(root, "assets", "v2", "ab", "cd", "ef", "abcdef0123456789"))
}

func TestAssetPathFlatForShortHash(t *testing.T) {
	root := t.TempDir()
	store := cache.New(root)

	path, err := store.AssetPath("abc12")
	assert.NilError(t, err)
	assert.Equal(t, path, filepath.Join(root, "assets", "v2", "abc12"))
}

func TestDownloadPath(t *testing.T) {
	root := t.TempDir()
	store := cache.New(root)

	path, err := store.DownloadPath("abcdefgh1234")
	assert.NilError(t, err)
	assert.Equal(t, path, filepath.Join(root, "downloads", "v1", "abcde", "h1234", "abcdefgh1234"))
}

func TestDownloadPathMalformedHash(t *testing.T) {
	store := cache.New(t.TempDir())

	_, err := store.DownloadPath("abcd")
	var malformed *cache.ErrMalformedHash
	assert.ErrorAs(t, err, &malformed)
	assert.Equal(t, malformed.Hash, "abcd")
}
