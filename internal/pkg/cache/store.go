// Package cache defines AssetStore: the sharded, content-addressed
// filesystem layout used for both raw downloaded stone packages and the
// individual assets unpacked from them (spec.md §4.3).
package cache

import (
	"fmt"
	"os"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// MinDownloadHashLen is the shortest hash AssetStore will accept for a
// download path.
const MinDownloadHashLen = 5

// MinShardedAssetHashLen is the shortest hash that gets the full
// three-level shard; shorter hashes are stored flat.
const MinShardedAssetHashLen = 10

// ErrMalformedHash is returned when a hash is too short for the
// operation requested.
type ErrMalformedHash struct {
	Hash string
}

func (e *ErrMalformedHash) Error() string {
	return fmt.Sprintf("cache: malformed hash: %q", e.Hash)
}

// Store is the AssetStore: a root cache directory split into a
// downloads tree and an assets tree.
type Store struct {
	Root string
}

// New returns a Store rooted at root. Directories are created lazily,
// as DownloadPath/AssetPath are called.
func New(root string) *Store {
	return &Store{Root: root}
}

// DownloadPath returns the path a completed download of hash should live
// at, creating its parent directories. Mirrors
// "<cache>/downloads/v1/<hash[0..5]>/<hash[-5..]>/<hash>" (spec.md §4.3).
func (s *Store) DownloadPath(hash string) (string, error) {
	if len(hash) < MinDownloadHashLen {
		return "", &ErrMalformedHash{Hash: hash}
	}

	dir, err := securejoin.SecureJoin(s.Root, joinSegments(
		"downloads", "v1", hash[:MinDownloadHashLen], hash[len(hash)-MinDownloadHashLen:],
	))
	if err != nil {
		return "", fmt.Errorf("cache: building download path: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cache: creating %s: %w", dir, err)
	}

	path, err := securejoin.SecureJoin(dir, hash)
	if err != nil {
		return "", fmt.Errorf("cache: building download path: %w", err)
	}
	return path, nil
}

// AssetPath returns the path an unpacked asset identified by hash should
// live at, creating its parent directories. Sharded three levels deep
// for hashes of at least MinShardedAssetHashLen characters, flat
// otherwise (spec.md §4.3).
func (s *Store) AssetPath(hash string) (string, error) {
	var rel string
	if len(hash) >= MinShardedAssetHashLen {
		rel = joinSegments("assets", "v2", hash[0:2], hash[2:4], hash[4:6])
	} else {
		rel = joinSegments("assets", "v2")
	}

	dir, err := securejoin.SecureJoin(s.Root, rel)
	if err != nil {
		return "", fmt.Errorf("cache: building asset path: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cache: creating %s: %w", dir, err)
	}

	path, err := securejoin.SecureJoin(dir, hash)
	if err != nil {
		return "", fmt.Errorf("cache: building asset path: %w", err)
	}
	return path, nil
}

// AssetExists reports whether hash's asset is already present on disk.
func (s *Store) AssetExists(hash string) (bool, error) {
	path, err := s.AssetPath(hash)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: stat %s: %w", path, err)
	}
	return true, nil
}

func joinSegments(segs ...string) string {
	out := segs[0]
	for _, s := range segs[1:] {
		out += "/" + s
	}
	return out
}
