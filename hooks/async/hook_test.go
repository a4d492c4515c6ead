package asynchook

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cachekit"
)

type countingHooks struct {
	cachekit.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (c *countingHooks) add(e string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *countingHooks) LockForced(k string, _ time.Duration) { c.add("forced:" + k) }
func (c *countingHooks) SelfHeal(k, r string)                 { c.add("heal:" + k + ":" + r) }
func (c *countingHooks) LockError(k, op string, _ error)      { c.add("lockerr:" + op) }

func (c *countingHooks) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func TestAsyncDeliversOnClose(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 16)

	h.LockForced("a", time.Millisecond)
	h.SelfHeal("b", "corrupt")
	h.LockError("c", "unlock", errors.New("x"))
	h.ExpiredPurged("d") // NopHooks on the inner side
	h.Close()

	require.ElementsMatch(t, []string{"forced:a", "heal:b:corrupt", "lockerr:unlock"}, inner.snapshot())
	require.Zero(t, h.Dropped())

	h.SelfHeal("late", "corrupt")
	require.EqualValues(t, 1, h.Dropped())
	h.Close() // idempotent
}

func TestAsyncDropsWhenFull(t *testing.T) {
	inner := &countingHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// first event occupies the worker, second fills the queue
	h.LockForced("1", 0)
	require.Eventually(t, func() bool {
		h.LockForced("2", 0)
		return h.Dropped() > 0
	}, time.Second, time.Millisecond)

	close(inner.block)
	h.Close()
	require.NotEmpty(t, inner.snapshot())
}
