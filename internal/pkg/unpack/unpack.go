// Package unpack implements the Unpacker: opens a completed Download as
// a stone file, extracts its Content payload, and splits it into
// individually content-addressed asset files using the Index payload's
// byte ranges (spec.md §4.5).
package unpack

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"boulder/internal/pkg/buildenv"
	"boulder/internal/pkg/cache"
	"boulder/internal/pkg/fetch"
	"boulder/pkg/stone/payload"
	"boulder/pkg/stone/read"
)

// ErrMissingContent is returned when a stone file has no Content payload.
var ErrMissingContent = fmt.Errorf("unpack: missing content payload")

// Result is what unpacking a download produces: the full payload
// sequence, for callers that need the Meta/Layout/Attributes sections.
type Result struct {
	Payloads []read.Payload
}

// Unpacker extracts downloaded stone packages into a Store's asset tree.
type Unpacker struct {
	Store *cache.Store
}

// New returns an Unpacker writing assets into store.
func New(store *cache.Store) *Unpacker {
	return &Unpacker{Store: store}
}

// Unpack opens dl as a stone file, reads its payload headers, and
// extracts each indexed byte range of the Content payload into its own
// canonical asset path. If dl.WasCached and every indexed asset already
// exists, the content payload is never extracted (spec.md §4.5
// optimization, §8 invariant 5). This runs synchronously; callers on an
// async scheduler should hand it to a worker goroutine.
func (u *Unpacker) Unpack(dl fetch.Download, onProgress func(fetch.Progress)) (Result, error) {
	file, err := os.Open(dl.Path)
	if err != nil {
		return Result{}, fmt.Errorf("unpack: opening %s: %w", dl.Path, err)
	}
	defer file.Close()

	reader, err := read.New(file)
	if err != nil {
		return Result{}, fmt.Errorf("unpack: %w", err)
	}

	payloads, err := reader.Payloads()
	if err != nil {
		return Result{}, fmt.Errorf("unpack: %w", err)
	}

	var indexEntries []payload.IndexEntry
	for _, p := range payloads {
		if entries, ok := p.Index(); ok {
			indexEntries = append(indexEntries, entries...)
		}
	}

	if dl.WasCached {
		allExist, err := u.allAssetsExist(indexEntries)
		if err != nil {
			return Result{}, err
		}
		if allExist {
			return Result{Payloads: payloads}, nil
		}
	}

	var contentPayload *read.Payload
	for i := range payloads {
		if payloads[i].IsContent() {
			contentPayload = &payloads[i]
			break
		}
	}
	if contentPayload == nil {
		return Result{}, ErrMissingContent
	}

	contentPath, err := u.extractContent(reader, *contentPayload, onProgress)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(contentPath)

	if err := u.splitAssets(contentPath, indexEntries); err != nil {
		return Result{}, err
	}

	return Result{Payloads: payloads}, nil
}

// allAssetsExist probes every indexed asset's existence up to
// MaxDiskConcurrency at once (spec.md §5, the original's
// check_assets_exist/buffer_unordered bound).
func (u *Unpacker) allAssetsExist(entries []payload.IndexEntry) (bool, error) {
	g := new(errgroup.Group)
	g.SetLimit(buildenv.MaxDiskConcurrency)

	var mu sync.Mutex
	all := true

	for _, e := range entries {
		e := e
		g.Go(func() error {
			exists, err := u.Store.AssetExists(e.DigestHex())
			if err != nil {
				return err
			}
			if !exists {
				mu.Lock()
				all = false
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}
	return all, nil
}

func (u *Unpacker) extractContent(reader *read.Reader, content read.Payload, onProgress func(fetch.Progress)) (string, error) {
	contentFile, err := os.CreateTemp("", "boulder-content-*")
	if err != nil {
		return "", fmt.Errorf("unpack: creating content temp file: %w", err)
	}
	defer contentFile.Close()

	err = reader.UnpackContent(content, contentFile, func(completed, total uint64) {
		if onProgress != nil {
			onProgress(fetch.Progress{Completed: completed, Total: total})
		}
	})
	if err != nil {
		os.Remove(contentFile.Name())
		return "", fmt.Errorf("unpack: extracting content: %w", err)
	}

	return contentFile.Name(), nil
}

func (u *Unpacker) splitAssets(contentPath string, entries []payload.IndexEntry) error {
	contentFile, err := os.Open(contentPath)
	if err != nil {
		return fmt.Errorf("unpack: reopening content file: %w", err)
	}
	defer contentFile.Close()

	for _, e := range entries {
		assetPath, err := u.Store.AssetPath(e.DigestHex())
		if err != nil {
			return err
		}

		length, err := e.Len()
		if err != nil {
			return fmt.Errorf("unpack: index entry range: %w", err)
		}

		section := io.NewSectionReader(contentFile, int64(e.Start), int64(length))
		out, err := os.Create(assetPath)
		if err != nil {
			return fmt.Errorf("unpack: creating asset %s: %w", assetPath, err)
		}

		_, copyErr := io.Copy(out, section)
		closeErr := out.Close()
		if copyErr != nil {
			return fmt.Errorf("unpack: writing asset %s: %w", assetPath, copyErr)
		}
		if closeErr != nil {
			return fmt.Errorf("unpack: closing asset %s: %w", assetPath, closeErr)
		}
	}

	return nil
}
