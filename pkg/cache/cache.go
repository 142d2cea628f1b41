// Package cache stores resolution results between runs.
//
// # Backends
//
//   - [FileCache]: JSON entries under a directory, for CLI usage
//   - [RedisCache]: shared cache for the HTTP server and multiple instances
//   - [NullCache]: disables caching
//
// # Keys
//
// A resolution is only reusable while the build files it was derived from
// are unchanged, so keys are derived from a [Fingerprint] of the discovered
// files plus every option that changes the output:
//
//	fp, _ := cache.Fingerprint(dir, files)
//	key := keyer.ResolutionKey(dir, fp, cache.ResolutionKeyOpts{Recursive: true})
//
// Results that depended on a build script are reused as well; pass refresh
// to the pipeline to force the toolchain to run again.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long resolution results stay cached.
const DefaultTTL = 24 * time.Hour

// Cache is a byte-oriented key/value store with expiration.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss
	// (false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ResolutionKeyOpts are the resolution options that change the cached
// records. Presentation options applied after a lookup do not belong here.
type ResolutionKeyOpts struct {
	Recursive   bool     `json:"recursive"`
	IgnoreFiles []string `json:"ignore_files,omitempty"`
	IgnoreDeps  []string `json:"ignore_deps,omitempty"`
	Toolchain   string   `json:"toolchain,omitempty"` // Identifies the external tools (binaries, lib dirs)
}

// Keyer derives cache keys.
type Keyer interface {
	ResolutionKey(dir, fingerprint string, opts ResolutionKeyOpts) string
}

// DefaultKeyer hashes every key component.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResolutionKey returns "resolve:<sha256>" over dir, fingerprint and opts.
func (DefaultKeyer) ResolutionKey(dir, fingerprint string, opts ResolutionKeyOpts) string {
	return hashKey("resolve", dir, fingerprint, opts)
}
