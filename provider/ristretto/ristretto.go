// Package ristretto stores cache entries in a cost-aware dgraph-io/ristretto cache.
package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/cachekit/internal/util"
	"github.com/unkn0wn-root/cachekit/lockstore"
	pr "github.com/unkn0wn-root/cachekit/provider"
)

const defaultLockSweep = time.Minute

type Provider struct {
	c     *rc.Cache
	locks lockstore.Store

	// ristretto only keeps key hashes; prefix clears need the originals.
	// Entries evicted by ristretto are pruned lazily on Get and Clear.
	mu   sync.Mutex // guards keys
	keys map[string]struct{}
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // cachekit passes len(entry) as cost by default, so bytes
	BufferItems int64
	Metrics     bool

	Locks lockstore.Store // nil => in-process LocalStore
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	locks := cfg.Locks
	if locks == nil {
		locks = lockstore.NewLocalStore(defaultLockSweep, defaultLockSweep)
	}
	return &Provider{c: c, locks: locks, keys: make(map[string]struct{})}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		p.forget(key)
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set waits for ristretto's write buffer so the entry is visible to the next Get.
// ok=false means the admission policy dropped the write.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	if !p.c.SetWithTTL(key, value, cost, ttl) {
		return false, nil
	}
	p.c.Wait()
	p.mu.Lock()
	p.keys[key] = struct{}{}
	p.mu.Unlock()
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.del(key)
	return nil
}

func (p *Provider) del(key string) {
	p.mu.Lock()
	p.c.Del(key)
	delete(p.keys, key)
	p.mu.Unlock()
}

// forget drops key from the index after a miss. The miss is re-checked under
// the index lock: a concurrent Set indexes its key only once the value is
// visible, so a stale miss cannot unindex a live entry.
func (p *Provider) forget(key string) {
	p.mu.Lock()
	if _, ok := p.c.Get(key); !ok {
		delete(p.keys, key)
	}
	p.mu.Unlock()
}

func (p *Provider) Clear(_ context.Context, prefix string) error {
	p.mu.Lock()
	for k := range p.keys {
		if util.UnderPrefix(k, prefix) {
			p.c.Del(k)
			delete(p.keys, k)
		}
	}
	p.mu.Unlock()
	p.c.Wait()
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
	p.c.Wait()
	p.c.Close()
	return p.locks.Close(ctx)
}

// Helper to expose metrics if desired by the application (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
