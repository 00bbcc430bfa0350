// Package cache stores generation results and rendered artifacts.
//
// Generation is a pure function of its options, so a finished run can be
// cached under a hash of the options and replayed on the next identical
// request. Artifacts (SVG, GeoJSON, DOT) are cached under the run hash
// plus their render options.
//
// # Backends
//
//   - [NullCache]: never stores anything (--no-cache)
//   - [FileCache]: one JSON file per entry under the XDG cache directory
//   - [RedisCache]: a shared Redis instance for the HTTP API
//
// # Keys
//
// Keys come from a [Keyer] so callers never assemble key strings by hand.
// [ScopedKeyer] prefixes every key for per-client namespaces.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/citygen/pkg/observability"
)

// KeyVersion is mixed into every key. Bump it when the generator's output
// for a given configuration changes.
const KeyVersion = "v1"

// TTLs for cached entries.
const (
	TTLRun      = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiration.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ArtifactKeyOpts identifies one rendering of a run.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Layers string `json:"layers,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// RunKey returns the key for a generation result.
	RunKey(optionsHash string) string
	// ArtifactKey returns the key for a rendered artifact of a run.
	ArtifactKey(runHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RunKey implements Keyer.
func (DefaultKeyer) RunKey(optionsHash string) string {
	return hashKey("run", KeyVersion, optionsHash)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(runHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", KeyVersion, runHash, opts)
}

// keyType returns the key's prefix up to the first colon, skipping a
// scope prefix, for hook reporting.
func keyType(key string) string {
	for _, t := range []string{"run:", "artifact:"} {
		if strings.Contains(key, t) {
			return strings.TrimSuffix(t, ":")
		}
	}
	return "other"
}

func recordGet(ctx context.Context, key string, hit bool) {
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType(key))
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
	}
}

func recordSet(ctx context.Context, key string, size int) {
	observability.Cache().OnCacheSet(ctx, keyType(key), size)
}

// NullCache stores nothing. Every Get is a miss and is reported to the
// cache hooks as one, so disabled caching still shows up in metrics.
type NullCache struct{}

// NewNullCache returns a cache for --no-cache runs.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	recordGet(ctx, key, false)
	return nil, false, nil
}

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }
