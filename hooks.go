package cachekit

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths (wrap with hooks/async if in doubt).
type Hooks interface {
	// A marker outlived the wait budget and was removed by the coordinator.
	LockForced(storageKey string, waited time.Duration)

	// An entry was deleted on read because it could not be decoded.
	// reason ∈ {"corrupt", "decompress", "value_decode"}
	SelfHeal(storageKey, reason string)

	// An entry was found past its expiry and purged on read.
	ExpiredPurged(storageKey string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// A lock primitive failed and the coordinator carried on without it.
	// op ∈ {"lock", "unlock", "is_locked"}
	LockError(storageKey, op string, err error)

	// Eager creation of the storage location failed.
	PrepareError(dir string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) LockForced(string, time.Duration) {}
func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) ExpiredPurged(string)             {}
func (NopHooks) ProviderSetRejected(string)       {}
func (NopHooks) LockError(string, string, error)  {}
func (NopHooks) PrepareError(string, error)       {}
