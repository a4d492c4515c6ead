// Package bigcache stores cache entries in an allegro/bigcache instance.
// Lock markers live in-process (lockstore.LocalStore), so this provider
// serializes writers within one process only.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/cachekit/internal/util"
	"github.com/unkn0wn-root/cachekit/lockstore"
	pr "github.com/unkn0wn-root/cachekit/provider"
)

const (
	defaultLifeWindow = 24 * time.Hour
	defaultLockSweep  = time.Minute
)

type Provider struct {
	c     *bc.BigCache
	locks lockstore.Store
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration // store-wide eviction age; 0 => 24h. Per-entry expiry is enforced by cachekit.
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited

	LockRetention time.Duration   // markers older than this are swept; 0 => 1m
	Locks         lockstore.Store // nil => in-process LocalStore
}

func New(cfg Config) (*Provider, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}

	locks := cfg.Locks
	if locks == nil {
		retention := cfg.LockRetention
		if retention <= 0 {
			retention = defaultLockSweep
		}
		locks = lockstore.NewLocalStore(defaultLockSweep, retention)
	}
	return &Provider{c: c, locks: locks}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	// BigCache does not support per-entry TTL; uses global LifeWindow.
	return true, p.c.Set(key, value)
}

func (p *Provider) Del(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Clear walks the whole cache; BigCache has no key ordering to narrow the scan.
func (p *Provider) Clear(_ context.Context, prefix string) error {
	var keys []string
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry evicted mid-iteration
			continue
		}
		if util.UnderPrefix(e.Key(), prefix) {
			keys = append(keys, e.Key())
		}
	}
	for _, k := range keys {
		if err := p.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

func (p *Provider) Lock(ctx context.Context, key string) error   { return p.locks.Lock(ctx, key) }
func (p *Provider) Unlock(ctx context.Context, key string) error { return p.locks.Unlock(ctx, key) }
func (p *Provider) IsLocked(ctx context.Context, key string) (bool, error) {
	return p.locks.IsLocked(ctx, key)
}
func (p *Provider) LockedUnder(ctx context.Context, prefix string) ([]string, error) {
	return p.locks.LockedUnder(ctx, prefix)
}

func (p *Provider) Close(ctx context.Context) error {
	return errors.Join(p.locks.Close(ctx), p.c.Close())
}

// Len reports the number of stored entries.
func (p *Provider) Len() int { return p.c.Len() }
