package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"boulder/internal/pkg/buildenv"
	"boulder/internal/pkg/buildlog"
	"boulder/internal/pkg/cache"
	"boulder/internal/pkg/fetch"
	"boulder/internal/pkg/sandbox"
	"boulder/pkg/recipe"
)

var (
	envPath   string
	macrosDir string
)

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&envPath, "env", "", "path to boulder's TOML config (defaults to built-in settings)")
	cmd.Flags().StringVar(&macrosDir, "macros", "/usr/share/boulder/macros", "directory of macro YAML files")
}

func loadEnv() (buildenv.Env, error) {
	if envPath == "" {
		return buildenv.Default(), nil
	}
	return buildenv.Load(envPath)
}

// fetchUpstreams downloads every plain URI upstream the recipe declares
// into the download cache before the build starts, up to
// MaxDiskConcurrency at once (spec.md §5). The downloads are left as
// they are: the Prepare step extracts or copies them from their cache
// path. Git upstreams are cloned by the Prepare step itself.
func fetchUpstreams(ctx context.Context, env buildenv.Env, r *recipe.Recipe) error {
	store := cache.New(env.CacheDir)
	fetcher := fetch.New(store)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(buildenv.MaxDiskConcurrency)

	for _, u := range r.Upstreams {
		if u.URI == nil {
			continue
		}

		u := u
		g.Go(func() error {
			buildlog.Infof("fetching %s", u.URI.URI)
			if _, err := fetcher.Fetch(ctx, fetch.Request{
				URI:          u.URI.URI,
				ExpectedHash: u.URI.Hash,
			}, nil); err != nil {
				return fmt.Errorf("fetching %s: %w", u.URI.URI, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// populateRoot is the sandbox.Populator boulder's CLI wires in: it
// only ensures the directories exist. Constructing the actual chroot
// from repository packages and arranging bind mounts/network
// namespaces is an external collaborator (spec.md §4.8).
func populateRoot(paths sandbox.Paths, networkingAllowed bool) error {
	if paths.RootDir == "" {
		return nil
	}
	return os.MkdirAll(paths.RootDir, 0o755)
}
