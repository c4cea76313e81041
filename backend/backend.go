// Package backend defines the durable store behind playstate.
//
// A Backend holds one payload per (key, userID) pair. Writes go through a Tx
// holding a single replace-into; the caller is responsible for serializing
// transactions (playstate keeps at most one open at a time). Reads may run
// concurrently with each other and with a write.
package backend

import (
	"context"

	"github.com/google/uuid"
)

type Backend interface {
	// Read returns (payload, true, nil) when a row exists and (nil, false, nil)
	// when it does not.
	Read(ctx context.Context, userID uuid.UUID, key string) ([]byte, bool, error)

	// Begin opens a write transaction.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the underlying handle.
	Close() error
}

// Tx is a single write transaction. Exactly one of Commit or Rollback must be
// called; Rollback after a failed Commit is allowed and reports an error that
// callers may ignore.
type Tx interface {
	// Upsert inserts the row or fully replaces the row with the same (key, userID).
	Upsert(ctx context.Context, userID uuid.UUID, key string, payload []byte) error
	Commit() error
	Rollback() error
}

// Opener opens a Backend. playstate calls it once, from Init.
type Opener func(ctx context.Context) (Backend, error)
