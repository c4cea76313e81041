package playstate

import (
	"context"
	"sync"
	"time"

	c "github.com/unkn0wn-root/playstate/codec"
	gen "github.com/unkn0wn-root/playstate/genstore"
	"github.com/unkn0wn-root/playstate/internal/util"
	"github.com/unkn0wn-root/playstate/internal/wire"
	pr "github.com/unkn0wn-root/playstate/provider"
)

// sharedTier keeps entries in a byte Provider, each framed with the generation
// it was written under. Saves bump the key's generation before writing, so an
// entry written by a reader that raced a save is rejected (and deleted) on the
// next read instead of shadowing the committed record.
//
// When a save cannot move the generation, the key is marked unpinned: it is
// served from the backend and never filled until a later save bumps it.
type sharedTier[V any] struct {
	ns       string
	provider pr.Provider
	gen      gen.GenStore
	codec    c.Codec[V]
	ttl      time.Duration
	log      Logger
	hooks    Hooks

	// fillMu orders fills (read-locked) against marking a key unpinned.
	fillMu   sync.RWMutex
	unpinned sync.Map // Key -> struct{}
}

// cacheable reports whether k fits in an entry frame.
func cacheable(k Key) bool {
	return len(k.String()) <= wire.MaxKeyLen
}

func (t *sharedTier[V]) isUnpinned(k Key) bool {
	_, ok := t.unpinned.Load(k)
	return ok
}

func (t *sharedTier[V]) storageKey(k Key) string {
	return util.EntryKey("entry:"+t.ns, k.String())
}

func (t *sharedTier[V]) Load(ctx context.Context, k Key) (V, bool, error) {
	var zero V
	if !cacheable(k) || t.isUnpinned(k) {
		return zero, false, nil
	}
	sk := t.storageKey(k)
	raw, ok, err := t.provider.Get(ctx, sk)
	if err != nil || !ok {
		return zero, false, err
	}
	g, key, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		t.heal(ctx, sk, "corrupt")
		return zero, false, nil
	}
	if key != k.String() {
		t.heal(ctx, sk, "key_mismatch")
		return zero, false, nil
	}
	cur, err := t.gen.Snapshot(ctx, sk)
	if err != nil {
		// can't validate; treat as a miss and leave the entry alone
		t.hooks.GenSnapshotError(sk, err)
		return zero, false, nil
	}
	if g != cur {
		t.heal(ctx, sk, "gen_mismatch")
		return zero, false, nil
	}
	v, err := t.codec.Decode(payload)
	if err != nil {
		t.heal(ctx, sk, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

func (t *sharedTier[V]) Snapshot(ctx context.Context, k Key) (uint64, error) {
	sk := t.storageKey(k)
	g, err := t.gen.Snapshot(ctx, sk)
	if err != nil {
		t.hooks.GenSnapshotError(sk, err)
		t.log.Warn("gen snapshot error", Fields{"key": sk, "err": err})
		return 0, err
	}
	return g, nil
}

func (t *sharedTier[V]) Fill(ctx context.Context, k Key, v V, observed uint64) V {
	if !cacheable(k) {
		return v
	}
	t.fillMu.RLock()
	defer t.fillMu.RUnlock()
	if t.isUnpinned(k) {
		return v
	}
	sk := t.storageKey(k)
	cur, err := t.gen.Snapshot(ctx, sk)
	if err != nil {
		t.hooks.GenSnapshotError(sk, err)
		return v
	}
	if cur != observed {
		// a save committed since the read began; prefer what it stored
		if stored, ok, err := t.Load(ctx, k); err == nil && ok {
			return stored
		}
		t.log.Debug("fill skipped (gen moved)", Fields{"key": sk, "obs": observed, "gen": cur})
		return v
	}
	payload, err := t.codec.Encode(v)
	if err != nil {
		t.log.Debug("fill skipped (encode)", Fields{"key": sk, "err": err})
		return v
	}
	t.set(ctx, sk, wire.EncodeEntry(observed, k.String(), payload))
	return v
}

func (t *sharedTier[V]) Store(ctx context.Context, k Key, _ V, payload []byte) error {
	if !cacheable(k) {
		return nil
	}
	sk := t.storageKey(k)
	g, bumpErr := t.gen.Bump(ctx, sk)
	if bumpErr != nil {
		t.hooks.GenBumpError(sk, bumpErr)
		// a reader holding the old generation could refill the old record
		t.fillMu.Lock()
		t.unpinned.Store(k, struct{}{})
		delErr := t.provider.Del(ctx, sk)
		t.fillMu.Unlock()
		if delErr != nil {
			t.hooks.InvalidateOutage(sk, bumpErr, delErr)
			t.log.Error("cache invalidation failed after commit", Fields{"key": sk, "bump_err": bumpErr, "del_err": delErr})
			return &InvalidateError{Key: sk, BumpErr: bumpErr, DelErr: delErr}
		}
		t.log.Warn("gen bump failed after commit; key bypasses the cache until the next save", Fields{"key": sk, "err": bumpErr})
		return nil
	}
	t.unpinned.Delete(k)

	if t.set(ctx, sk, wire.EncodeEntry(g, k.String(), payload)) {
		return nil
	}
	// The previous entry is only rejected while the generation store remembers
	// g; drop it before generations are pruned or reset.
	if delErr := t.provider.Del(ctx, sk); delErr != nil {
		t.hooks.InvalidateOutage(sk, nil, delErr)
		t.log.Error("cache invalidation failed after commit", Fields{"key": sk, "del_err": delErr})
		return &InvalidateError{Key: sk, DelErr: delErr}
	}
	return nil
}

func (t *sharedTier[V]) Close(ctx context.Context) error {
	// gen store first (best effort)
	_ = t.gen.Close(ctx)
	return t.provider.Close(ctx)
}

// set reports whether the provider accepted entry.
func (t *sharedTier[V]) set(ctx context.Context, sk string, entry []byte) bool {
	ok, err := t.provider.Set(ctx, sk, entry, int64(len(entry)), t.ttl)
	if err != nil {
		t.log.Warn("provider set failed", Fields{"key": sk, "err": err})
		return false
	}
	if !ok {
		t.hooks.ProviderSetRejected(sk)
		t.log.Debug("provider set rejected (pressure)", Fields{"key": sk})
	}
	return ok
}

func (t *sharedTier[V]) heal(ctx context.Context, sk, reason string) {
	_ = t.provider.Del(ctx, sk)
	t.hooks.SelfHeal(sk, reason)
}
