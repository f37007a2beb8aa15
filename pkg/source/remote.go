package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cherry/cherry/pkg/types"
)

// Fetcher downloads remote files
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches remote files over HTTP(S)
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads url and returns the response body
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// CachePolicy says whether and how remote files are mirrored locally
type CachePolicy struct {
	Enabled  bool
	Dir      string
	Download types.CacheDownload
}

// CachePath returns where url is stored inside the cache directory
func CachePath(cacheDir, url string) string {
	name := strings.NewReplacer(":", "_", "/", "_").Replace(url)
	return filepath.Join(cacheDir, name)
}

// Remote is a source referenced by URL, optionally mirrored in a local cache.
// It keeps the build context so that a deferred download is cancelled with
// the build.
type Remote struct {
	ctx      context.Context
	url      string
	path     string
	fileType types.FileType
	fetcher  Fetcher
	contents []byte
	loaded   bool
}

// NewRemote creates a remote source. With caching enabled the cache is refreshed
// right away according to the download policy, so an unusable entry fails here.
func NewRemote(ctx context.Context, url string, policy CachePolicy, fetcher Fetcher) (*Remote, error) {
	r := &Remote{
		ctx:     ctx,
		url:     url,
		path:    url,
		fetcher: fetcher,
	}

	if policy.Enabled {
		if err := os.MkdirAll(policy.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		r.path = CachePath(policy.Dir, url)
		if err := r.refreshCache(ctx, policy.Download); err != nil {
			return nil, err
		}
	}

	r.fileType = types.FileTypeFromPath(r.path)
	return r, nil
}

func (r *Remote) refreshCache(ctx context.Context, download types.CacheDownload) error {
	if download == types.CacheDownloadLocal {
		if !isFile(r.path) {
			return fmt.Errorf("%w: cannot find file in local cache: %s", ErrMissingSource, r.url)
		}
		return nil
	}

	data, err := r.fetcher.Fetch(ctx, r.url)
	if err == nil {
		if werr := os.WriteFile(r.path, data, 0644); werr != nil {
			return fmt.Errorf("failed to write cache entry for %s: %w", r.url, werr)
		}
		r.contents = data
		r.loaded = true
		return nil
	}

	if download == types.CacheDownloadForce || !isFile(r.path) {
		return r.downloadError(err)
	}
	// Auto mode keeps using the stale cache entry.
	return nil
}

func (r *Remote) downloadError(err error) error {
	return fmt.Errorf("%w: %w: cannot download %s: %w", ErrMissingSource, ErrRemoteUnavailable, r.url, err)
}

// Type returns the type tag derived from the URL or cache file extension
func (r *Remote) Type() types.FileType {
	return r.fileType
}

// Origin returns the cache file path when cached, the URL otherwise
func (r *Remote) Origin() string {
	return r.path
}

// URL returns the remote reference this source was created from
func (r *Remote) URL() string {
	return r.url
}

// Read returns the file contents, downloading them on first use when not cached
func (r *Remote) Read() ([]byte, error) {
	if r.loaded {
		return r.contents, nil
	}

	var data []byte
	var err error
	if IsURL(r.path) {
		data, err = r.fetcher.Fetch(r.ctx, r.url)
		if err != nil {
			return nil, r.downloadError(err)
		}
	} else {
		data, err = os.ReadFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMissingSource, r.path, err)
		}
	}

	r.contents = data
	r.loaded = true
	return r.contents, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
