// Package buildenv loads boulder's small process-wide configuration:
// where the cache directory lives, whether ccache is enabled, and the
// root directory builds work under. Analogous to apptainer's Env
// threaded through internal/pkg/build, but sourced from a TOML file
// instead of CLI flags (CLI parsing is an external collaborator per
// spec.md §1).
package buildenv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// MaxDiskConcurrency bounds how many downloads, or asset-existence
// checks, run at once against the cache (spec.md §5, the original's
// environment::MAX_DISK_CONCURRENCY / buffer_unordered bound).
const MaxDiskConcurrency = 4

// Env is boulder's resolved process-wide configuration.
type Env struct {
	// CacheDir is the root of the download/asset cache (spec.md §6).
	CacheDir string `toml:"cache_dir"`
	// RootDir is the directory builds' rootfs/work trees are created under.
	RootDir string `toml:"root_dir"`
	// Ccache enables wrapping compiler invocations with ccache.
	Ccache bool `toml:"ccache"`
}

// Default returns an Env with boulder's conventional defaults.
func Default() Env {
	return Env{
		CacheDir: "/var/cache/boulder",
		RootDir:  "/var/lib/boulder/build",
		Ccache:   false,
	}
}

// Load reads path as TOML, falling back to Default() for any field not
// present in the file.
func Load(path string) (Env, error) {
	env := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return env, nil
	}

	if _, err := toml.DecodeFile(path, &env); err != nil {
		return Env{}, fmt.Errorf("buildenv: decoding %s: %w", path, err)
	}

	return env, nil
}

// DownloadsDir is the root of the content-addressed download cache.
func (e Env) DownloadsDir() string {
	return filepath.Join(e.CacheDir, "downloads")
}

// AssetsDir is the root of the content-addressed unpacked-asset cache.
func (e Env) AssetsDir() string {
	return filepath.Join(e.CacheDir, "assets")
}
