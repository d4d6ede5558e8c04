// Package fetch implements the Fetcher: an HTTP download into an
// AssetStore, reporting progress as it goes (spec.md §4.4). Transport
// and server errors are retried with exponential backoff; every attempt
// truncates the target file and starts again from the first byte, so an
// interrupted download is not resumed.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"boulder/internal/pkg/buildlog"
	"boulder/internal/pkg/cache"
)

// ErrMissingURI is returned when a fetch request has no source URI.
var ErrMissingURI = fmt.Errorf("fetch: missing uri")

// ErrMissingHash is returned when a fetch request has no expected hash.
var ErrMissingHash = fmt.Errorf("fetch: missing hash")

// Request describes one package to fetch.
type Request struct {
	URI          string
	ExpectedHash string
	ExpectedSize *uint64
}

// Progress reports incremental download status.
type Progress struct {
	Delta     uint64
	Completed uint64
	Total     uint64
}

// Download is a completed fetch: where the bytes landed, and whether
// they were already cached.
type Download struct {
	ID        string
	Path      string
	WasCached bool
}

// HTTPDoer is the subset of *http.Client Fetcher needs, so tests can
// stub the transport without a real network.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads packages into a Store.
type Fetcher struct {
	Store  *cache.Store
	Client HTTPDoer
}

// New returns a Fetcher backed by store, using http.DefaultClient unless
// overridden.
func New(store *cache.Store) *Fetcher {
	return &Fetcher{Store: store, Client: http.DefaultClient}
}

// Fetch downloads req into the store, invoking onProgress for every
// chunk read. If the download already exists on disk, it returns
// immediately with WasCached=true without touching the network
// (spec.md §4.4, §8 invariant 4).
func (f *Fetcher) Fetch(ctx context.Context, req Request, onProgress func(Progress)) (Download, error) {
	if req.URI == "" {
		return Download{}, ErrMissingURI
	}
	if req.ExpectedHash == "" {
		return Download{}, ErrMissingHash
	}

	path, err := f.Store.DownloadPath(req.ExpectedHash)
	if err != nil {
		return Download{}, err
	}

	if _, err := os.Stat(path); err == nil {
		return Download{ID: req.ExpectedHash, Path: path, WasCached: true}, nil
	} else if !os.IsNotExist(err) {
		return Download{}, fmt.Errorf("fetch: stat %s: %w", path, err)
	}

	if err := f.download(ctx, req, path, onProgress); err != nil {
		return Download{}, err
	}

	return Download{ID: req.ExpectedHash, Path: path, WasCached: false}, nil
}

func (f *Fetcher) download(ctx context.Context, req Request, path string, onProgress func(Progress)) error {
	operation := func() error {
		return f.downloadOnce(ctx, req, path, onProgress)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		buildlog.Warningf("fetch: retrying %s in %s: %v", req.URI, wait, err)
	})
	if err != nil {
		return fmt.Errorf("fetch: %s: %w", req.URI, err)
	}
	return nil
}

func (f *Fetcher) downloadOnce(ctx context.Context, req Request, path string, onProgress func(Progress)) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URI, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("fetch: building request: %w", err))
	}

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fetch: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("fetch: server error: %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("fetch: client error: %s", resp.Status))
	}

	out, err := os.Create(path)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("fetch: creating %s: %w", path, err))
	}
	defer out.Close()

	total := uint64(0)
	if req.ExpectedSize != nil {
		total = *req.ExpectedSize
	}

	var completed uint64
	buf := make([]byte, 256*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("fetch: writing %s: %w", path, writeErr)
			}
			completed += uint64(n)
			if onProgress != nil {
				reportedTotal := total
				if reportedTotal == 0 {
					reportedTotal = completed
				}
				onProgress(Progress{Delta: uint64(n), Completed: completed, Total: reportedTotal})
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("fetch: reading response: %w", readErr)
		}
	}
}
