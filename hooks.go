package playstate

import "time"

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the store calls them on hot
// paths, some of them while holding the write gate. Wrap slow sinks with
// hooks/async.
type Hooks interface {
	// A Get was answered (hit) or not (miss) by the cache tier.
	CacheLookup(hit bool)

	// A cache miss was resolved against the backend; found=false means the
	// default record was served.
	ReadThrough(k Key, found bool)

	// A stored row could not be decoded.
	CorruptRow(k Key, err error)

	// A write transaction committed. elapsed includes the wait for the gate.
	WriteCommitted(k Key, elapsed time.Duration)

	// A write transaction failed and was rolled back (cancellation excluded).
	WriteFailed(k Key, err error)

	// The shared tier dropped an entry on read.
	// reason ∈ {"corrupt", "key_mismatch", "gen_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors.
	GenSnapshotError(storageKey string, err error)
	GenBumpError(storageKey string, err error)

	// A stale entry may survive a commit: the delete that should have removed it
	// failed. bumpErr is nil when the generation moved but the new entry was not
	// stored.
	InvalidateOutage(storageKey string, bumpErr, delErr error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CacheLookup(bool)                      {}
func (NopHooks) ReadThrough(Key, bool)                 {}
func (NopHooks) CorruptRow(Key, error)                 {}
func (NopHooks) WriteCommitted(Key, time.Duration)     {}
func (NopHooks) WriteFailed(Key, error)                {}
func (NopHooks) SelfHeal(string, string)               {}
func (NopHooks) ProviderSetRejected(string)            {}
func (NopHooks) GenSnapshotError(string, error)        {}
func (NopHooks) GenBumpError(string, error)            {}
func (NopHooks) InvalidateOutage(string, error, error) {}
