package cachekit

import "time"

const (
	// DefaultLockRetries is how many times a blocked writer re-checks a marker.
	DefaultLockRetries = 16
	// DefaultLockRetryInterval is the sleep between re-checks.
	DefaultLockRetryInterval = 100 * time.Microsecond
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
