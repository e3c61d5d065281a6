// Package hasher fingerprints model artifacts by digesting their tail.
//
// Weight files are large and their headers are often shared across
// checkpoints, so only the trailing window is read. Results are memoised per
// absolute path for the lifetime of a Cache.
package hasher

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"stemd/internal/modelcfg"
)

// WindowSize is the number of trailing bytes that contribute to a fingerprint.
const WindowSize = 10000 * 1024

// Cache memoises fingerprints keyed by absolute path. It is safe for
// concurrent use; concurrent first requests for one path share a single read.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	group   singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats is a snapshot of cache effectiveness. Misses count digests actually
// computed; callers sharing an in-flight read are not counted.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Fingerprint returns the hex digest of the file at path. A missing file
// yields an error satisfying modelcfg.IsArtifactNotFound.
func (c *Cache) Fingerprint(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}

	c.mu.RLock()
	h, ok := c.entries[abs]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		cacheHits.Inc()
		return h, nil
	}

	v, err, _ := c.group.Do(abs, func() (any, error) {
		c.mu.RLock()
		h, ok := c.entries[abs]
		c.mu.RUnlock()
		if ok {
			return h, nil
		}
		h, err := digestTail(abs)
		if err != nil {
			return "", err
		}
		c.misses.Add(1)
		cacheMisses.Inc()
		c.mu.Lock()
		c.entries[abs] = h
		c.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Forget drops the cached entry for path, if any.
func (c *Cache) Forget(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, abs)
	c.mu.Unlock()
}

// Stats reports the current entry count and hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Fingerprint digests path without memoisation.
func Fingerprint(path string) (string, error) {
	return digestTail(path)
}

func digestTail(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", modelcfg.ErrArtifactNotFound(path)
		}
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	if st.IsDir() {
		return "", modelcfg.ErrArtifactNotFound(path)
	}
	if size := st.Size(); size > WindowSize {
		if _, err := f.Seek(size-WindowSize, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek artifact: %w", err)
		}
	}
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
