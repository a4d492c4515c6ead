// Package lockstore keeps advisory lock markers for providers whose storage
// engine has no natural place for them (in-process caches) or where a
// dedicated keyspace is preferable (Redis).
package lockstore

import (
	"context"
	"time"
)

// Store abstracts where lock markers live.
// Use LocalStore for in-process markers, or RedisStore to share them
// between processes talking to the same Redis.
type Store interface {
	// Lock places or refreshes the marker for key.
	Lock(ctx context.Context, key string) error
	// Unlock removes the marker; missing markers are not an error.
	Unlock(ctx context.Context, key string) error
	// IsLocked reports whether a marker exists.
	IsLocked(ctx context.Context, key string) (bool, error)
	// LockedUnder lists marked keys equal to prefix or below it.
	LockedUnder(ctx context.Context, prefix string) ([]string, error)
	// Cleanup drops markers older than retention (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
