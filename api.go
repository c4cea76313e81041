package playstate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/playstate/backend"
	c "github.com/unkn0wn-root/playstate/codec"
	gen "github.com/unkn0wn-root/playstate/genstore"
	pr "github.com/unkn0wn-root/playstate/provider"
)

// Store is the per-user record store. It is safe for concurrent use; there is
// no external locking API.
type Store[V any] interface {
	// Init opens the backend. It must be called once, before Get or Save.
	Init(ctx context.Context) error

	// Get returns the record for (userID, item). A key that was never written
	// yields the default record, not an error.
	Get(ctx context.Context, userID uuid.UUID, item string) (V, error)

	// Save durably replaces the record for (userID, item). When Save returns nil
	// every later Get observes record.
	Save(ctx context.Context, userID uuid.UUID, item string, record V) error

	// Shutdown waits for an in-flight write, then closes the backend and the cache
	// tier. Repeated calls are no-ops. Close errors are logged.
	Shutdown(ctx context.Context)
}

// Options configure a Store. Codec and one of Path or Open are required.
type Options[V any] struct {
	// Required
	Codec c.Codec[V]
	Path  string         // SQLite file; used when Open is nil
	Open  backend.Opener // overrides Path

	NewRecord func() V // default record served on a miss; nil => zero V
	Logger    Logger   // nil => NopLogger
	Hooks     Hooks    // nil => NopHooks

	// Shared cache tier. With Provider nil the cache is an unbounded in-process
	// map that lives as long as the Store.
	Provider        pr.Provider
	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
	Namespace       string        // provider key namespace; "" => "userdata"
	EntryTTL        time.Duration // provider entry TTL; 0 => no expiry
	CleanupInterval time.Duration // LocalGenStore sweep; 0 => 1h
	GenRetention    time.Duration // LocalGenStore retention; 0 => 30d
}

func New[V any](opts Options[V]) (Store[V], error) {
	return newStore[V](opts)
}
