package unpack_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"boulder/internal/pkg/cache"
	"boulder/internal/pkg/fetch"
	"boulder/internal/pkg/unpack"
	"boulder/pkg/stone/header"
	"boulder/pkg/stone/payload"
)

func writeStoneFile(t *testing.T, path string, content []byte, entries []payload.IndexEntry) {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(header.V1Header{NumPayloads: 2}.Encode())

	indexBody := payload.EncodeIndex(entries)
	buf.Write(payload.Header{Kind: payload.KindIndex, PlainSize: uint64(len(indexBody)), StoredSize: uint64(len(indexBody))}.Encode())
	buf.Write(indexBody)

	buf.Write(payload.Header{Kind: payload.KindContent, PlainSize: uint64(len(content)), StoredSize: uint64(len(content))}.Encode())
	buf.Write(content)

	assert.NilError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestUnpackSplitsAssets(t *testing.T) {
	content := []byte("AAAAABBBBB")
	entries := []payload.IndexEntry{
		{Start: 0, End: 5, Digest: [8]byte{0x01}},
		{Start: 5, End: 10, Digest: [8]byte{0x02}},
	}

	downloadPath := filepath.Join(t.TempDir(), "pkg.stone")
	writeStoneFile(t, downloadPath, content, entries)

	store := cache.New(t.TempDir())
	u := unpack.New(store)

	result, err := u.Unpack(fetch.Download{Path: downloadPath, WasCached: false}, nil)
	assert.NilError(t, err)
	assert.Equal(t, len(result.Payloads), 2)

	for _, e := range entries {
		assetPath, err := store.AssetPath(e.DigestHex())
		assert.NilError(t, err)
		data, err := os.ReadFile(assetPath)
		assert.NilError(t, err)
		assert.Equal(t, len(data), 5)
	}

	_, err = os.Stat(downloadPath)
	assert.NilError(t, err) // download itself is untouched, only temp content file is removed
}

func TestUnpackSkipsWhenCachedAndAssetsExist(t *testing.T) {
	content := []byte("AAAAA")
	entries := []payload.IndexEntry{{Start: 0, End: 5, Digest: [8]byte{0x03}}}

	downloadPath := filepath.Join(t.TempDir(), "pkg.stone")
	writeStoneFile(t, downloadPath, content, entries)

	store := cache.New(t.TempDir())

	assetPath, err := store.AssetPath(entries[0].DigestHex())
	assert.NilError(t, err)
	assert.NilError(t, os.WriteFile(assetPath, []byte("preexisting"), 0o644))

	u := unpack.New(store)
	result, err := u.Unpack(fetch.Download{Path: downloadPath, WasCached: true}, nil)
	assert.NilError(t, err)
	assert.Equal(t, len(result.Payloads), 2)

	// Asset content untouched: proves extraction was skipped.
	data, err := os.ReadFile(assetPath)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "preexisting")
}
