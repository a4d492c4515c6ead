// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/cachekit"
//	"github.com/unkn0wn-root/cachekit/codec"
//	asynchook "github.com/unkn0wn-root/cachekit/hooks/async"
//	"github.com/unkn0wn-root/cachekit/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:   10, // sample logs: ~every 10th self-heal
//	    LockForcedEvery: 1,  // log every forced unlock
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := cachekit.New[User](cachekit.Options[User]{
//	    Config:   cachekit.DefaultConfig(),
//	    Provider: provider,
//	    Codec:    codec.JSON[User]{},
//	    Hooks:    hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cachekit"
)

type Hooks struct {
	inner   cachekit.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Uint64
}

var _ cachekit.Hooks = (*Hooks)(nil)

func New(inner cachekit.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string)         { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ExpiredPurged(k string)       { h.try(func() { h.inner.ExpiredPurged(k) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) PrepareError(d string, err error) {
	h.try(func() { h.inner.PrepareError(d, err) })
}
func (h *Hooks) LockForced(k string, waited time.Duration) {
	h.try(func() { h.inner.LockForced(k, waited) })
}
func (h *Hooks) LockError(k, op string, err error) {
	h.try(func() { h.inner.LockError(k, op, err) })
}
