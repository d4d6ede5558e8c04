// Command stone-fetch downloads one stone package into the content
// cache and splits it into content-addressed assets, reporting progress
// on the terminal (spec.md §1, Fetcher + Unpacker).
package main

import (
	"context"
	"fmt"
	"os"

	units "github.com/docker/go-units"
	"github.com/spf13/pflag"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"boulder/internal/pkg/buildlog"
	"boulder/internal/pkg/cache"
	"boulder/internal/pkg/fetch"
	"boulder/internal/pkg/unpack"
)

func main() {
	var (
		cacheDir string
		uri      string
		hash     string
	)

	fs := pflag.NewFlagSet("stone-fetch", pflag.ExitOnError)
	fs.StringVar(&cacheDir, "cache-dir", "/var/cache/boulder", "cache root directory")
	fs.StringVar(&uri, "uri", "", "package URI to fetch")
	fs.StringVar(&hash, "hash", "", "expected content hash")
	_ = fs.Parse(os.Args[1:])

	if uri == "" || hash == "" {
		fmt.Fprintln(os.Stderr, "stone-fetch: --uri and --hash are required")
		os.Exit(2)
	}

	if err := run(cacheDir, uri, hash); err != nil {
		buildlog.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cacheDir, uri, hash string) error {
	store := cache.New(cacheDir)
	fetcher := fetch.New(store)
	unpacker := unpack.New(store)

	progress := mpb.New(mpb.WithWidth(64))
	var bar *mpb.Bar

	dl, err := fetcher.Fetch(context.Background(), fetch.Request{URI: uri, ExpectedHash: hash}, func(p fetch.Progress) {
		if bar == nil {
			bar = progress.AddBar(int64(p.Total),
				mpb.PrependDecorators(decor.Name(uri)),
				mpb.AppendDecorators(decor.CountersKibiByte("% .1f / % .1f")),
			)
		}
		bar.SetCurrent(int64(p.Completed))
	})
	progress.Wait()
	if err != nil {
		return fmt.Errorf("fetching %s: %w", uri, err)
	}

	if dl.WasCached {
		buildlog.Infof("%s already cached at %s", uri, dl.Path)
	} else if info, statErr := os.Stat(dl.Path); statErr == nil {
		buildlog.Infof("downloaded %s (%s)", dl.Path, units.HumanSize(float64(info.Size())))
	}

	result, err := unpacker.Unpack(dl, nil)
	if err != nil {
		return fmt.Errorf("unpacking %s: %w", dl.Path, err)
	}

	buildlog.Infof("unpacked %d payloads from %s", len(result.Payloads), dl.Path)
	return nil
}
