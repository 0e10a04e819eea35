// Package cache stores rendered artifacts keyed by the content they were
// rendered from.
//
// Rendering a story map through Graphviz or assembling an HTML export is
// pure: the same project bytes and options always produce the same output.
// Keys are therefore derived from [Hash] of the serialized project plus the
// render options, and entries never need invalidation beyond their TTL.
//
// Backends:
//   - [FileCache]: one JSON file per entry under a cache directory (CLI)
//   - [RedisCache]: shared cache for `novella serve` deployments
//   - [NullCache]: disables caching
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/novella/pkg/observability"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the cached data and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry under a key
// prefix, such as one project's [ProjectScope].
type Clearer interface {
	ClearPrefix(ctx context.Context, prefix string) (int, error)
}

// Fetch returns the cached value for key, or computes, stores and returns it
// on a miss. The bool reports a hit. Cache read and write failures degrade to
// computing the value; only errors from compute are returned.
func Fetch(ctx context.Context, c Cache, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	if c == nil {
		data, err := compute()
		return data, false, err
	}
	kind := keyKind(key)
	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, kind)
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, kind)
	data, err := compute()
	if err != nil {
		return nil, false, err
	}
	if c.Set(ctx, key, data, ttl) == nil {
		observability.Cache().OnCacheSet(ctx, kind, len(data))
	}
	return data, false, nil
}

// keyKind returns the segment in front of the hash, so "scope:map:ab12"
// reports "map".
func keyKind(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return "unknown"
	}
	head := key[:i]
	if j := strings.LastIndexByte(head, ':'); j >= 0 {
		head = head[j+1:]
	}
	return head
}
