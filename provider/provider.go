// Package provider defines the byte stores that can back playstate's shared
// cache tier.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. The keyspace
// "entry:<ns>:" is owned by playstate; foreign values under it fail frame
// validation and are deleted.
//
// A provider may evict or refuse entries at will. playstate treats any miss as
// a reason to read the backend, so a lossy provider costs reads, never
// correctness.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (<= 0 means no expiry). cost is the
	// entry size in bytes; stores may ignore it. Returns ok=false when the store
	// rejected the write under pressure. A successful Set must be visible to the
	// next Get.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
