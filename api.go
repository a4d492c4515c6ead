package cachekit

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/cachekit/codec"
	"github.com/unkn0wn-root/cachekit/metrics"
	pr "github.com/unkn0wn-root/cachekit/provider"
)

// SetCostFunc computes the cost of an entry for cost-aware providers (ristretto).
// raw is the framed entry exactly as it is handed to the provider.
type SetCostFunc func(key string, raw []byte) int64

// Cache is the provider-agnostic cache contract. Every backend behaves the same
// behind it: same configuration model, same counters, same expiry policy and
// the same advisory locking around writers.
//
// V is the caller's value type. Serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	Enabled() bool
	Compressed() bool
	Dir() string
	Expire() int // seconds

	// Setup; both return the receiver for chaining.
	SetDir(dir string) Cache[V]
	SetExpire(seconds int) Cache[V]

	Write(ctx context.Context, key string, value V, opts ...WriteOption) error
	Read(ctx context.Context, key string) (v V, ok bool, err error)
	Delete(ctx context.Context, key string) error
	// Clear removes the entry at prefix and every entry below it.
	// An empty prefix clears the whole cache directory.
	Clear(ctx context.Context, prefix string) error

	// Advisory write markers. Lock and Unlock are idempotent.
	Lock(ctx context.Context, key string) error
	Unlock(ctx context.Context, key string) error
	IsLocked(ctx context.Context, key string) (bool, error)

	Stats() Stats
	Close(ctx context.Context) error
}

// Options tune the behavior of the cache.
// Provider, Codec and Config are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Provider pr.Provider
	Codec    c.Codec[V]

	// Required. The zero Config is rejected rather than read as "disabled";
	// a disabled cache still names its dir, e.g. DefaultConfig with Enabled=false.
	Config Config

	Logger            Logger                  // if nil, NopLogger is used
	Hooks             Hooks                   // if nil, NopHooks is used
	Latency           *metrics.LatencyTracker // if nil, latencies are not recorded
	ComputeSetCost    SetCostFunc             // default len(raw)
	LockRetries       int                     // 0 => 16
	LockRetryInterval time.Duration           // 0 => 100µs
	Now               func() time.Time        // default time.Now
}

// WriteOption adjusts a single Write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	expire    int
	hasExpire bool
}

// WithExpire overrides the cache-wide expiry for one entry.
// seconds <= 0 stores the entry without expiry.
func WithExpire(seconds int) WriteOption {
	return func(o *writeOptions) {
		o.expire = seconds
		o.hasExpire = true
	}
}

// New builds a cache over opts.Provider. It fails only on construction errors
// (missing provider, codec or config, invalid config), all matching ErrConfig.
func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
