package playstate

import (
	"context"
	"sync"
)

// tier is the cache behind Get. Entries only ever hold records that were
// committed or read back from the backend.
//
// Read-through protocol:
//
//	obs := t.Snapshot(k)     // before the backend read
//	v   := read(k)
//	v    = t.Fill(k, v, obs) // keeps whatever a concurrent commit stored
//
// Store runs after a commit, under the write gate, and always wins.
type tier[V any] interface {
	Load(ctx context.Context, k Key) (V, bool, error)
	Snapshot(ctx context.Context, k Key) (uint64, error)
	Fill(ctx context.Context, k Key, v V, observed uint64) V
	Store(ctx context.Context, k Key, v V, payload []byte) error
	Close(ctx context.Context) error
}

// localTier is an unbounded process-lifetime map. No TTL, no eviction.
type localTier[V any] struct {
	m sync.Map // Key -> V
}

func newLocalTier[V any]() *localTier[V] { return &localTier[V]{} }

func (t *localTier[V]) Load(_ context.Context, k Key) (V, bool, error) {
	e, ok := t.m.Load(k)
	if !ok {
		var zero V
		return zero, false, nil
	}
	v, _ := e.(V)
	return v, true, nil
}

// Snapshot is always 0; LoadOrStore in Fill already gives committed writes
// priority over a concurrent fill.
func (t *localTier[V]) Snapshot(context.Context, Key) (uint64, error) { return 0, nil }

func (t *localTier[V]) Fill(_ context.Context, k Key, v V, _ uint64) V {
	actual, _ := t.m.LoadOrStore(k, v)
	stored, _ := actual.(V)
	return stored
}

func (t *localTier[V]) Store(_ context.Context, k Key, v V, _ []byte) error {
	t.m.Store(k, v)
	return nil
}

func (t *localTier[V]) Close(context.Context) error { return nil }
