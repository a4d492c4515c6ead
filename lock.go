package cachekit

import (
	"context"
	"time"
)

// isLocked reports whether a marker exists. Provider failures read as unlocked.
func (c *cache[V]) isLocked(ctx context.Context, sk string) bool {
	locked, err := c.provider.IsLocked(ctx, sk)
	if err != nil {
		c.lockError(sk, "is_locked", err)
		return false
	}
	return locked
}

// checkLock waits for a foreign marker on sk to go away. After lockRetries
// re-checks the marker is presumed stale (crashed or stalled writer) and is
// removed. It never fails: contention only costs time.
func (c *cache[V]) checkLock(ctx context.Context, sk string) {
	if !c.isLocked(ctx, sk) {
		return
	}

	start := c.now()
	for i := 0; i < c.lockRetries; i++ {
		time.Sleep(c.lockRetryInterval)
		if !c.isLocked(ctx, sk) {
			c.recordLatency("lock_wait", start)
			return
		}
	}

	waited := c.now().Sub(start)
	c.unlock(ctx, sk)
	c.recordLatency("lock_wait", start)
	c.log.Warn("lock wait exhausted; forcing unlock", Fields{
		"key":     sk,
		"retries": c.lockRetries,
		"waited":  waited.String(),
	})
	c.hooks.LockForced(sk, waited)
}

// lockedUnder lists marked keys at or below sk. Provider failures read as none.
func (c *cache[V]) lockedUnder(ctx context.Context, sk string) []string {
	keys, err := c.provider.LockedUnder(ctx, sk)
	if err != nil {
		c.lockError(sk, "locked_under", err)
		return nil
	}
	return keys
}

func (c *cache[V]) lock(ctx context.Context, sk string) {
	if err := c.provider.Lock(ctx, sk); err != nil {
		c.lockError(sk, "lock", err)
	}
}

// unlock must run even when the caller's context is already done,
// otherwise a cancelled writer leaves its marker behind.
func (c *cache[V]) unlock(ctx context.Context, sk string) {
	if err := c.provider.Unlock(context.WithoutCancel(ctx), sk); err != nil {
		c.lockError(sk, "unlock", err)
	}
}

func (c *cache[V]) lockError(sk, op string, err error) {
	c.log.Debug("lock primitive failed", Fields{"key": sk, "op": op, "err": err})
	c.hooks.LockError(sk, op, err)
}
