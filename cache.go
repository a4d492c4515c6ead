package cachekit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cachekit/codec"
	"github.com/unkn0wn-root/cachekit/internal/compress"
	"github.com/unkn0wn-root/cachekit/internal/util"
	"github.com/unkn0wn-root/cachekit/internal/wire"
	"github.com/unkn0wn-root/cachekit/metrics"
	pr "github.com/unkn0wn-root/cachekit/provider"
)

type cache[V any] struct {
	provider pr.Provider
	codec    codec.Codec[V]
	log      Logger
	hooks    Hooks
	latency  *metrics.LatencyTracker

	enabled  bool
	compress bool

	mu     sync.RWMutex // guards dir
	dir    string
	expire atomic.Int64

	computeSetCost    SetCostFunc
	lockRetries       int
	lockRetryInterval time.Duration
	now               func() time.Time

	stats counters
}

var _ Cache[struct{}] = (*cache[struct{}])(nil)

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, &ConfigError{Field: "provider", Reason: "is required"}
	}
	if opts.Codec == nil {
		return nil, &ConfigError{Field: "codec", Reason: "is required"}
	}

	cfg := opts.Config
	if cfg == (Config{}) {
		return nil, &ConfigError{Field: "config", Reason: "is required (use DefaultConfig or LoadConfig)"}
	}
	cfg.Dir = util.CleanDir(cfg.Dir)
	if cfg.Enabled {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	c := &cache[V]{
		provider: opts.Provider,
		codec:    opts.Codec,
		latency:  opts.Latency,
		enabled:  cfg.Enabled,
		compress: cfg.Compress,
		dir:      cfg.Dir,
	}
	c.expire.Store(int64(cfg.Expire))

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.lockRetries = coalesce(opts.LockRetries, DefaultLockRetries)
	c.lockRetryInterval = coalesce(opts.LockRetryInterval, DefaultLockRetryInterval)
	if c.lockRetries < 0 {
		c.lockRetries = 0
	}

	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}
	if opts.Now != nil {
		c.now = opts.Now
	} else {
		c.now = time.Now
	}

	if c.enabled {
		c.prepare(cfg.Dir)
	}
	return c, nil
}

func (c *cache[V]) Enabled() bool    { return c.enabled }
func (c *cache[V]) Compressed() bool { return c.compress }
func (c *cache[V]) Expire() int      { return int(c.expire.Load()) }

func (c *cache[V]) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

func (c *cache[V]) SetDir(dir string) Cache[V] {
	d := util.CleanDir(dir)
	if err := (Config{Dir: d}).Validate(); err != nil {
		c.log.Warn("SetDir ignored", Fields{"dir": dir, "err": err})
		return c
	}
	c.mu.Lock()
	c.dir = d
	c.mu.Unlock()

	if c.enabled {
		c.prepare(d)
	}
	return c
}

func (c *cache[V]) SetExpire(seconds int) Cache[V] {
	c.expire.Store(int64(seconds))
	return c
}

// prepare creates the storage location for providers that own one.
// Failure is not fatal here; it shows up as a storage error on first write.
func (c *cache[V]) prepare(dir string) {
	p, ok := c.provider.(pr.Preparer)
	if !ok {
		return
	}
	if err := p.Prepare(dir); err != nil {
		c.log.Error("prepare cache dir failed", Fields{"dir": dir, "err": err})
		c.hooks.PrepareError(dir, err)
	}
}

func (c *cache[V]) Stats() Stats { return c.stats.snapshot() }

func (c *cache[V]) Close(ctx context.Context) error {
	if c.provider != nil {
		return c.provider.Close(ctx)
	}
	return nil
}

func (c *cache[V]) Write(ctx context.Context, key string, value V, opts ...WriteOption) error {
	if !c.enabled {
		return nil
	}
	sk, err := c.storageKey(key)
	if err != nil {
		return err
	}
	defer c.recordLatency("write", c.now())

	var wo writeOptions
	for _, opt := range opts {
		opt(&wo)
	}
	expire := c.Expire()
	if wo.hasExpire {
		expire = wo.expire
	}

	payload, err := c.codec.Encode(value)
	if err != nil {
		return err
	}
	body := payload
	if c.compress {
		if body, err = compress.Compress(payload); err != nil {
			return err
		}
	}

	now := c.now()
	e := wire.Entry{Compressed: c.compress, StoredAt: now, Payload: body}
	var ttl time.Duration
	if expire > 0 {
		ttl = time.Duration(expire) * time.Second
		e.ExpiresAt = now.Add(ttl)
	}
	raw, err := wire.Encode(e)
	if err != nil {
		return err
	}

	c.checkLock(ctx, sk)
	c.lock(ctx, sk)
	defer c.unlock(ctx, sk)

	ok, err := c.provider.Set(ctx, sk, raw, c.computeSetCost(sk, raw), ttl)
	if err != nil {
		return &OpError{Op: "write", Key: key, Err: err}
	}
	if !ok {
		c.log.Debug("write rejected by provider (pressure)", Fields{"key": sk})
		c.hooks.ProviderSetRejected(sk)
		return nil
	}
	c.stats.recordWrite(len(payload))
	return nil
}

func (c *cache[V]) Read(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !c.enabled {
		return zero, false, nil
	}
	sk, err := c.storageKey(key)
	if err != nil {
		return zero, false, err
	}
	defer c.recordLatency("read", c.now())

	raw, ok, err := c.provider.Get(ctx, sk)
	if err != nil {
		return zero, false, &OpError{Op: "read", Key: key, Err: err}
	}
	if !ok {
		return zero, false, nil
	}

	e, err := wire.Decode(raw)
	if err != nil {
		c.selfHeal(ctx, sk, "corrupt", err)
		return zero, false, nil
	}
	if e.Expired(c.now()) {
		if c.purge(ctx, sk) {
			c.hooks.ExpiredPurged(sk)
		}
		return zero, false, nil
	}

	payload := e.Payload
	if e.Compressed {
		if payload, err = compress.Decompress(e.Payload); err != nil {
			c.selfHeal(ctx, sk, "decompress", err)
			return zero, false, nil
		}
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		c.selfHeal(ctx, sk, "value_decode", err)
		return zero, false, nil
	}

	c.stats.recordRead(len(payload))
	return v, true, nil
}

func (c *cache[V]) Delete(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	sk, err := c.storageKey(key)
	if err != nil {
		return err
	}
	defer c.recordLatency("delete", c.now())

	c.checkLock(ctx, sk)
	c.lock(ctx, sk)
	defer c.unlock(ctx, sk)

	if err := c.provider.Del(ctx, sk); err != nil {
		return &OpError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (c *cache[V]) Clear(ctx context.Context, prefix string) error {
	if !c.enabled {
		return nil
	}
	// empty prefix => the cache dir itself
	sk := util.StorageKey(c.Dir(), prefix)
	defer c.recordLatency("clear", c.now())

	// Wait out every writer holding a key the clear is about to touch. No
	// marker is placed: providers leave markers alone, so the writers keep theirs.
	for _, k := range c.lockedUnder(ctx, sk) {
		c.checkLock(ctx, k)
	}

	if err := c.provider.Clear(ctx, sk); err != nil {
		return &OpError{Op: "clear", Key: prefix, Err: err}
	}
	return nil
}

func (c *cache[V]) Lock(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	sk, err := c.storageKey(key)
	if err != nil {
		return err
	}
	if err := c.provider.Lock(ctx, sk); err != nil {
		return &OpError{Op: "lock", Key: key, Err: err}
	}
	return nil
}

func (c *cache[V]) Unlock(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	sk, err := c.storageKey(key)
	if err != nil {
		return err
	}
	if err := c.provider.Unlock(ctx, sk); err != nil {
		return &OpError{Op: "unlock", Key: key, Err: err}
	}
	return nil
}

func (c *cache[V]) IsLocked(ctx context.Context, key string) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	sk, err := c.storageKey(key)
	if err != nil {
		return false, err
	}
	locked, err := c.provider.IsLocked(ctx, sk)
	if err != nil {
		return false, &OpError{Op: "is_locked", Key: key, Err: err}
	}
	return locked, nil
}

func (c *cache[V]) storageKey(key string) (string, error) {
	if util.CleanKey(key) == "" {
		return "", ErrEmptyKey
	}
	return util.StorageKey(c.Dir(), key), nil
}

// purge removes sk unless a writer currently holds it; a fresh value may be
// landing. Reports whether the delete went through.
func (c *cache[V]) purge(ctx context.Context, sk string) bool {
	if c.isLocked(ctx, sk) {
		return false
	}
	if err := c.provider.Del(ctx, sk); err != nil {
		c.log.Debug("purge failed", Fields{"key": sk, "err": err})
		return false
	}
	return true
}

func (c *cache[V]) selfHeal(ctx context.Context, sk, reason string, cause error) {
	c.log.Warn("dropping unreadable entry", Fields{"key": sk, "reason": reason, "err": cause})
	if c.purge(ctx, sk) {
		c.hooks.SelfHeal(sk, reason)
	}
}

func (c *cache[V]) recordLatency(op string, start time.Time) {
	if c.latency != nil {
		c.latency.Record(op, c.now().Sub(start))
	}
}
