// Package cache keeps package server responses on disk so repeated searches
// do not hit every source again.
package cache

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/spksearch/internal/fetch"
	"github.com/ralt/spksearch/internal/utils"
)

// Fetcher wraps another fetch.Fetcher with an on-disk, gzip compressed cache
type Fetcher struct {
	inner fetch.Fetcher
	dir   string
	ttl   time.Duration
	now   func() time.Time
}

// New creates a caching fetcher storing entries under dir for ttl.
// A zero ttl disables caching and every call goes to inner.
func New(inner fetch.Fetcher, dir string, ttl time.Duration) *Fetcher {
	return &Fetcher{inner: inner, dir: dir, ttl: ttl, now: time.Now}
}

var _ fetch.Fetcher = (*Fetcher)(nil)

// Get returns a cached GET response or fetches it
func (c *Fetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	key := utils.CacheKey(http.MethodGet, url, headerKey(headers))
	return c.cached(key, ".json.gz", func() ([]byte, error) {
		return c.inner.Get(ctx, url, headers)
	})
}

// Post returns a cached POST response or fetches it
func (c *Fetcher) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	key := utils.CacheKey(http.MethodPost, url, string(body), headerKey(headers))
	return c.cached(key, ".json.gz", func() ([]byte, error) {
		return c.inner.Post(ctx, url, body, headers)
	})
}

// DownloadBinary returns a cached binary download or fetches it
func (c *Fetcher) DownloadBinary(ctx context.Context, url string) ([]byte, error) {
	key := utils.CacheKey("BINARY", url)
	return c.cached(key, ".bin.gz", func() ([]byte, error) {
		return c.inner.DownloadBinary(ctx, url)
	})
}

// Purge removes every cache entry
func (c *Fetcher) Purge() error {
	entries, err := filepath.Glob(filepath.Join(c.dir, "*.gz"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(e); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Fetcher) cached(key, ext string, fetchFn func() ([]byte, error)) ([]byte, error) {
	if c.ttl <= 0 || c.dir == "" {
		return fetchFn()
	}

	path := filepath.Join(c.dir, key+ext)
	log := logrus.WithField("cache_key", key)

	if data, ok := c.load(path); ok {
		log.Debug("Cache hit")
		return data, nil
	}

	data, err := fetchFn()
	if err != nil {
		return nil, err
	}

	if err := c.store(path, data); err != nil {
		log.Warnf("Failed to write cache entry: %v", err)
	}
	return data, nil
}

func (c *Fetcher) load(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false
	}

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	data, err := utils.GzipDecompress(compressed)
	if err != nil {
		logrus.Warnf("Discarding corrupt cache entry %s: %v", path, err)
		os.Remove(path)
		return nil, false
	}
	return data, true
}

func (c *Fetcher) store(path string, data []byte) error {
	compressed, err := utils.GzipCompress(data)
	if err != nil {
		return err
	}
	return utils.WriteFile(path, compressed, 0644)
}

// headerKey renders headers in a stable order for cache keys
func headerKey(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []byte
	for _, k := range keys {
		out = append(out, k...)
		out = append(out, '=')
		out = append(out, headers[k]...)
		out = append(out, '\n')
	}
	return string(out)
}
