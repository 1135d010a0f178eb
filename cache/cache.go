// Package cache is a file-backed response cache for hot read-only API
// endpoints (comparison table, bookmaker listings). Entries are keyed
// by the request path and query and invalidated wholesale on entity
// writes.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const cacheRoot = "cache"

// Key derives the cache file name for a request.
func Key(path, rawQuery string) string {
	hash := xxhash.Sum64String(path + "?" + rawQuery)
	return fmt.Sprintf("%016x", hash)
}

func cachePath(prefix, key string) string {
	return filepath.Join(cacheRoot, prefix, key+".json")
}

// prefixFor buckets keys by the first path segment so invalidation can
// target a whole API area.
func prefixFor(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "root"
	}
	return parts[0]
}

// Write stores a response body for the given request.
func Write(path, rawQuery, body string) error {
	prefix := prefixFor(path)
	if err := os.MkdirAll(filepath.Join(cacheRoot, prefix), 0755); err != nil {
		return err
	}
	return os.WriteFile(cachePath(prefix, Key(path, rawQuery)), []byte(body), 0644)
}

// Read returns the cached body if present and younger than maxAge.
func Read(path, rawQuery string, maxAge time.Duration) (string, bool) {
	file := cachePath(prefixFor(path), Key(path, rawQuery))

	info, err := os.Stat(file)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// ClearPrefix drops every cached response under a path bucket.
// Entity writes call this with "api" so stale listings never outlive
// a mutation.
func ClearPrefix(prefix string) error {
	return os.RemoveAll(filepath.Join(cacheRoot, prefix))
}

// ClearOld removes cache files older than maxAge, for periodic cleanup.
func ClearOld(maxAge time.Duration) error {
	return filepath.Walk(cacheRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
}
