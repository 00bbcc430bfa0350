package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrExpired is returned by [Cache.Get] when an entry exists but has
// exceeded its time-to-live (TTL).
//
// The stale data stays on disk until the next [Cache.Set] for the same key.
// Callers fetch the value again from its source and store it:
//
//	ok, err := c.Get(url, &city)
//	if errors.Is(err, httputil.ErrExpired) {
//	    // download url again, then c.Set(url, city)
//	}
var ErrExpired = errors.New("cache entry expired")

// Cache provides file-based caching of arbitrary JSON-marshalable data.
//
// Each entry is a JSON file in the cache directory, named by the hex
// SHA-256 of its namespaced key, so arbitrary URLs and file names are safe
// keys and namespaces never collide on disk.
//
// Entries expire by file modification time. A TTL of 0 means entries never
// expire.
//
// Cache operations are not goroutine-safe: callers sharing one instance
// between goroutines must synchronize. Separate instances, even in
// different processes, can share a directory.
//
// Use [Cache.Namespace] to scope keys per source:
//
//	remote := cache.Namespace("config:")
//	remote.Set("https://example.com/city.toml", data)
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// NewCache creates a Cache that stores entries in dir with the given TTL.
//
// Parameters:
//   - dir: cache directory. Use "" for [DefaultDir].
//   - ttl: time-to-live of each entry. Use 0 for no expiration.
//
// The directory is created with mode 0755 if it does not exist. Resolving
// the home directory or creating dir are the only failures.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl, prefix: ""}, nil
}

// DefaultDir returns ~/.cache/citygen/remote.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "citygen", "remote"), nil
}

// Dir returns the absolute path to the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the time-to-live duration for cache entries.
// A TTL of 0 means cache entries never expire.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get retrieves a cached value by key and unmarshals it into v, which
// must be a pointer. The key is prefixed with the cache's namespace.
//
// Return values:
//
//   - (true, nil): hit; v holds the value.
//   - (false, nil): miss; v is unchanged.
//   - (false, ErrExpired): the entry is older than the TTL.
//   - (false, other error): I/O or decoding failure.
func (c *Cache) Get(key string, v any) (bool, error) {
	path := c.keyPath(c.prefix + key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return false, ErrExpired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

// Set stores v under key, overwriting any existing entry and resetting
// its TTL.
//
// v is encoded with encoding/json. Marshal errors and write errors are
// returned unchanged; a failed write may leave a partial file, which the
// next Get reports as a decoding error.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(c.prefix+key), data, 0o644)
}

// Namespace returns a view of the cache that prefixes all keys with
// prefix. Namespaces chain: c.Namespace("a:").Namespace("b:") uses "a:b:".
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{
		dir:    c.dir,
		ttl:    c.ttl,
		prefix: c.prefix + prefix,
	}
}

// Clear removes every entry in the cache directory, regardless of
// namespace, and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return n, err
		}
		n++
	}
	return n, nil
}

func (c *Cache) keyPath(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(h[:]))
}
