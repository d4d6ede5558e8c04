package fetch_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"gotest.tools/v3/assert"

	"boulder/internal/pkg/cache"
	"boulder/internal/pkg/fetch"
)

type stubDoer struct {
	body    string
	calls   int
	status  int
	lastReq *http.Request
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.calls++
	s.lastReq = req
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(s.body)),
	}, nil
}

func TestFetchDownloadsAndWritesFile(t *testing.T) {
	store := cache.New(t.TempDir())
	doer := &stubDoer{body: "package bytes"}
	f := &fetch.Fetcher{Store: store, Client: doer}

	var progressed []fetch.Progress
	dl, err := f.Fetch(context.Background(), fetch.Request{
		URI:          "https://example.org/pkg.stone",
		ExpectedHash: "abcdef0123456789",
	}, func(p fetch.Progress) { progressed = append(progressed, p) })

	assert.NilError(t, err)
	assert.Equal(t, dl.WasCached, false)
	assert.Assert(t, len(progressed) > 0)

	contents, err := os.ReadFile(dl.Path)
	assert.NilError(t, err)
	assert.Equal(t, string(contents), "package bytes")
	assert.Equal(t, doer.calls, 1)
}

func TestFetchReturnsCachedWithoutNetwork(t *testing.T) {
	store := cache.New(t.TempDir())
	doer := &stubDoer{body: "unused"}
	f := &fetch.Fetcher{Store: store, Client: doer}

	path, err := store.DownloadPath("abcdef0123456789")
	assert.NilError(t, err)
	assert.NilError(t, os.WriteFile(path, []byte("already here"), 0o644))

	dl, err := f.Fetch(context.Background(), fetch.Request{
		URI:          "https://example.org/pkg.stone",
		ExpectedHash: "abcdef0123456789",
	}, nil)

	assert.NilError(t, err)
	assert.Equal(t, dl.WasCached, true)
	assert.Equal(t, doer.calls, 0)
}

func TestFetchMissingFields(t *testing.T) {
	store := cache.New(t.TempDir())
	f := fetch.New(store)

	_, err := f.Fetch(context.Background(), fetch.Request{ExpectedHash: "abcdef0123456789"}, nil)
	assert.ErrorIs(t, err, fetch.ErrMissingURI)

	_, err = f.Fetch(context.Background(), fetch.Request{URI: "https://example.org/x"}, nil)
	assert.ErrorIs(t, err, fetch.ErrMissingHash)
}
