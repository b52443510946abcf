// Package fetch maintains the local cached copy of the remote ranking
// archive. The cache file's modification time is the sole freshness signal:
// a copy younger than the configured window is reused with no network I/O,
// anything else is re-downloaded and atomically swapped into place.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/siterank/siterank/pkg/config"
	apperrors "github.com/siterank/siterank/pkg/errors"
	"github.com/siterank/siterank/pkg/logger"
)

// defaultArchiveName is used when the source URL has no usable path
// basename to derive a cache file name from.
const defaultArchiveName = "top-1m.csv.zip"

// Fetcher downloads the ranking archive and manages its cached copy. It
// implements the rank.Source contract.
type Fetcher struct {
	url    string
	dir    string
	path   string
	maxAge time.Duration
	client *http.Client

	downloads atomic.Int64

	logger *slog.Logger
}

// New creates a Fetcher from the source configuration. The cache file name
// is derived from the URL path basename.
func New(cfg config.SourceConfig) *Fetcher {
	name := defaultArchiveName
	if u, err := url.Parse(cfg.URL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			name = base
		}
	}
	return &Fetcher{
		url:    cfg.URL,
		dir:    cfg.CacheDir,
		path:   filepath.Join(cfg.CacheDir, name),
		maxAge: cfg.MaxAge(),
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.WithComponent("archive-fetcher"),
	}
}

// Ensure returns the path of a usable local archive. A cached copy whose
// mtime is within the freshness window is reused without touching the
// network; a missing, unreadable, or stale copy triggers a download.
func (f *Fetcher) Ensure(ctx context.Context) (string, error) {
	if info, err := os.Stat(f.path); err == nil {
		age := time.Since(info.ModTime())
		if age <= f.maxAge {
			f.logger.Info("cached archive is fresh, skipping download",
				"path", f.path,
				"age", age.Round(time.Second),
			)
			return f.path, nil
		}
		f.logger.Info("cached archive is stale",
			"path", f.path,
			"age", age.Round(time.Second),
			"max_age", f.maxAge,
		)
	}

	if err := f.download(ctx); err != nil {
		return "", err
	}
	return f.path, nil
}

// download streams the remote archive to a temporary file and renames it
// over the cache path on success, so the cache path never holds a partial
// download.
func (f *Fetcher) download(ctx context.Context) error {
	f.downloads.Add(1)

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("%w: creating cache directory %s: %v", apperrors.ErrFetchFailed, f.dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("%w: building request for %s: %v", apperrors.ErrFetchFailed, f.url, err)
	}

	f.logger.Info("downloading ranking archive", "url", f.url)
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching %s: %v", apperrors.ErrFetchFailed, f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: fetching %s: unexpected status %s", apperrors.ErrFetchFailed, f.url, resp.Status)
	}

	tmpPath := f.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: creating temp file %s: %v", apperrors.ErrFetchFailed, tmpPath, err)
	}

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %v", apperrors.ErrFetchFailed, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %v", apperrors.ErrFetchFailed, tmpPath, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s: %v", apperrors.ErrFetchFailed, f.path, err)
	}

	f.logger.Info("ranking archive downloaded",
		"url", f.url,
		"path", f.path,
		"bytes", n,
	)
	return nil
}

// Path returns the cache file location the fetcher manages.
func (f *Fetcher) Path() string {
	return f.path
}

// Downloads reports how many downloads this fetcher has started. Fresh-cache
// hits do not count.
func (f *Fetcher) Downloads() int64 {
	return f.downloads.Load()
}
