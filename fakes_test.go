package playstate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/playstate/backend"
	gen "github.com/unkn0wn-root/playstate/genstore"
	pr "github.com/unkn0wn-root/playstate/provider"
)

// ==============================
// In-memory backend
// ==============================

type memKey struct {
	user uuid.UUID
	item string
}

type memBackend struct {
	mu     sync.Mutex
	rows   map[memKey][]byte
	closed bool

	reads   int
	begins  int
	open    int
	maxOpen int

	beginErr  error
	upsertErr error
	commitErr error

	// when set, Read/Commit signal *Started (if non-nil) and wait for the gate
	readStarted   chan struct{}
	readGate      chan struct{}
	commitStarted chan struct{}
	commitGate    chan struct{}
}

var _ backend.Backend = (*memBackend)(nil)

func newMemBackend() *memBackend { return &memBackend{rows: make(map[memKey][]byte)} }

func (b *memBackend) opener() backend.Opener {
	return func(context.Context) (backend.Backend, error) { return b, nil }
}

func (b *memBackend) put(user uuid.UUID, item string, raw []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[memKey{user, item}] = raw
}

func (b *memBackend) row(user uuid.UUID, item string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.rows[memKey{user, item}]
	return v, ok
}

func (b *memBackend) stats() (reads, begins, maxOpen int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads, b.begins, b.maxOpen
}

func (b *memBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *memBackend) Read(ctx context.Context, user uuid.UUID, item string) ([]byte, bool, error) {
	// the row is read up front; a gated read returns what was there before it blocked
	b.mu.Lock()
	b.reads++
	started, gate := b.readStarted, b.readGate
	closed := b.closed
	v, ok := b.rows[memKey{user, item}]
	b.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if closed {
		return nil, false, errors.New("memBackend: closed")
	}
	return v, ok, nil
}

func (b *memBackend) Begin(context.Context) (backend.Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("memBackend: closed")
	}
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.begins++
	b.open++
	if b.open > b.maxOpen {
		b.maxOpen = b.open
	}
	return &memTx{b: b, pending: make(map[memKey][]byte)}, nil
}

func (b *memBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type memTx struct {
	b       *memBackend
	pending map[memKey][]byte
	done    bool
}

func (t *memTx) Upsert(_ context.Context, user uuid.UUID, item string, payload []byte) error {
	t.b.mu.Lock()
	err := t.b.upsertErr
	t.b.mu.Unlock()
	if err != nil {
		return err
	}
	t.pending[memKey{user, item}] = append([]byte(nil), payload...)
	return nil
}

func (t *memTx) Commit() error {
	t.b.mu.Lock()
	started, gate := t.b.commitStarted, t.b.commitGate
	t.b.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.done {
		return errors.New("memTx: already done")
	}
	if t.b.commitErr != nil {
		return t.b.commitErr
	}
	for k, v := range t.pending {
		t.b.rows[k] = v
	}
	t.done = true
	t.b.open--
	return nil
}

func (t *memTx) Rollback() error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.done {
		return errors.New("memTx: already done")
	}
	t.done = true
	t.b.open--
	return nil
}

// ==============================
// In-memory provider
// ==============================

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu        sync.Mutex
	m         map[string]memEntry
	delErr    error
	setErr    error
	rejectSet bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return false, p.setErr
	}
	if p.rejectSet {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delErr != nil {
		return p.delErr
	}
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(context.Context) error { return nil }

func (p *memProvider) refuseSets(reject bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectSet, p.setErr = reject, err
}

func (p *memProvider) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

// ==============================
// Generation store that cannot bump
// ==============================

type brokenGenStore struct{ err error }

var _ gen.GenStore = brokenGenStore{}

func (brokenGenStore) Snapshot(context.Context, string) (uint64, error) { return 0, nil }
func (g brokenGenStore) Bump(context.Context, string) (uint64, error)   { return 0, g.err }
func (brokenGenStore) Cleanup(time.Duration)                            {}
func (brokenGenStore) Close(context.Context) error                      { return nil }

// ==============================
// Counting hooks
// ==============================

type countingHooks struct {
	NopHooks
	hits, misses     atomic.Int64
	corrupt          atomic.Int64
	committed        atomic.Int64
	failed           atomic.Int64
	healed           atomic.Int64
	invalidateOutage atomic.Int64
}

func (h *countingHooks) CacheLookup(hit bool) {
	if hit {
		h.hits.Add(1)
	} else {
		h.misses.Add(1)
	}
}
func (h *countingHooks) CorruptRow(Key, error)                 { h.corrupt.Add(1) }
func (h *countingHooks) WriteCommitted(Key, time.Duration)     { h.committed.Add(1) }
func (h *countingHooks) WriteFailed(Key, error)                { h.failed.Add(1) }
func (h *countingHooks) SelfHeal(string, string)               { h.healed.Add(1) }
func (h *countingHooks) InvalidateOutage(string, error, error) { h.invalidateOutage.Add(1) }
