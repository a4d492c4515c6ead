// Package provider defines the storage abstraction used by cachekit.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. cachekit frames every
// value with its own header (compression flag, timestamps), so a provider never
// has to interpret what it stores.
//
// Keys are slash-separated storage locations ("<dir>/<key>"). Clear(prefix)
// removes the entry equal to prefix and every entry below it on a segment
// boundary; "<dir>/ab" is not below "<dir>/a".
//
// Lock markers are advisory. Lock and Unlock are idempotent, and any caller may
// Unlock any key: cachekit force-releases markers held longer than its wait budget.
// Clear never removes markers; only the writer holding one (or a forced release)
// may do that.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by providers that track their own lifecycle.
var ErrClosed = errors.New("provider: closed")

// Provider is a minimal byte store with TTLs and lock markers.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. ttl <= 0 means no expiry at the store level; cachekit
	// enforces expiry itself, so a store may ignore ttl entirely.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Clear removes the entries of prefix and every key below it.
	// Lock markers are left in place.
	Clear(ctx context.Context, prefix string) error

	// Lock places (or refreshes) the marker for key.
	Lock(ctx context.Context, key string) error
	// Unlock removes the marker. Unlocking an unlocked key is a no-op.
	Unlock(ctx context.Context, key string) error
	// IsLocked reports whether a marker exists for key.
	IsLocked(ctx context.Context, key string) (bool, error)
	// LockedUnder lists the keys equal to prefix or below it that carry a marker.
	LockedUnder(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Preparer is implemented by providers that own a filesystem location and
// want it created eagerly when the cache directory is configured.
type Preparer interface {
	Prepare(dir string) error
}
