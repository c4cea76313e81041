// Package asynchook moves hook delivery off the store's hot paths (some hooks
// fire while the write gate is held).
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	st, _ := userdata.New(playstate.Options[*userdata.ItemData]{
//	    Path:  "userdata.db",
//	    Hooks: hooks,
//	})
//
// Events are dropped, not blocked on, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/playstate"
)

type Hooks struct {
	inner   playstate.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	dropped atomic.Uint64
}

var _ playstate.Hooks = (*Hooks)(nil)

func New(inner playstate.Hooks, workers, qlen int) *Hooks {
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

// Close drains queued events and stops the workers. Events fired afterwards are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full or
// closed.
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
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheLookup(hit bool) { h.try(func() { h.inner.CacheLookup(hit) }) }
func (h *Hooks) ReadThrough(k playstate.Key, found bool) {
	h.try(func() { h.inner.ReadThrough(k, found) })
}
func (h *Hooks) CorruptRow(k playstate.Key, err error) {
	h.try(func() { h.inner.CorruptRow(k, err) })
}
func (h *Hooks) WriteCommitted(k playstate.Key, d time.Duration) {
	h.try(func() { h.inner.WriteCommitted(k, d) })
}
func (h *Hooks) WriteFailed(k playstate.Key, err error) {
	h.try(func() { h.inner.WriteFailed(k, err) })
}
func (h *Hooks) SelfHeal(k, r string)             { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)     { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) GenBumpError(k string, err error) { h.try(func() { h.inner.GenBumpError(k, err) }) }
func (h *Hooks) GenSnapshotError(k string, err error) {
	h.try(func() { h.inner.GenSnapshotError(k, err) })
}
func (h *Hooks) InvalidateOutage(k string, be, de error) {
	h.try(func() { h.inner.InvalidateOutage(k, be, de) })
}
