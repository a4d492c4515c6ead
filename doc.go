// Package cachekit implements one cache contract over interchangeable storage
// backends, so application code can swap the filesystem for Redis, S3 or an
// in-memory cache without touching call sites.
//
// Components:
//   - Provider: byte store with TTLs and advisory lock markers
//     (file, Redis, S3, BigCache, Ristretto; see provider/...).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Config: enabled, compress, dir, expire. Loadable from YAML.
//
// Keys:
//
//	<dir>/<key>  - entry location; keys are cleaned so ".." cannot leave dir
//
// Every Write and Delete runs the lock protocol on its key:
//
//	wait while IsLocked (16 x 100µs by default)
//	still locked  => the marker is presumed stale and force-removed
//	Lock; store; Unlock
//
// Contention never fails a caller. Under a stalled writer two writers may
// briefly overlap; the store is last-writer-wins and readers are never blocked.
//
// Entries are framed with a small header carrying the compression flag and
// expiry, so every backend expires entries the same way (expire <= 0 => never).
package cachekit
