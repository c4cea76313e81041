package playstate

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/playstate/backend"
)

// persist replaces the row for k with payload inside one transaction, holding
// the write gate for the whole transaction. onCommit runs after a successful
// commit while the gate is still held, so cache updates happen in commit order.
//
// The context is honored up to gate acquisition only. Once a transaction is
// begun it runs to commit or rollback.
func (s *store[V]) persist(ctx context.Context, k Key, payload []byte, onCommit func() error) (err error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return cancelled(err)
	}
	defer s.gate.Release(1)

	// Shutdown may have run while we waited for the gate.
	be, err := s.conn()
	if err != nil {
		return err
	}

	txCtx := context.WithoutCancel(ctx)
	tx, err := be.Begin(txCtx)
	if err != nil {
		return s.persistFailed(k, err)
	}
	committed := false
	defer func() {
		if !committed {
			s.rollback(k, tx)
		}
	}()

	if err := tx.Upsert(txCtx, k.UserID, k.Item, payload); err != nil {
		return s.persistFailed(k, err)
	}
	if err := tx.Commit(); err != nil {
		return s.persistFailed(k, err)
	}
	committed = true
	s.hooks.WriteCommitted(k, time.Since(start))

	if onCommit != nil {
		return onCommit()
	}
	return nil
}

func (s *store[V]) rollback(k Key, tx backend.Tx) {
	if err := tx.Rollback(); err != nil {
		// a failed Commit usually ends the transaction already
		s.log.Debug("rollback", keyFields(k, err))
	}
}

func (s *store[V]) persistFailed(k Key, err error) error {
	if isCancellation(err) {
		return cancelled(err)
	}
	if errors.Is(err, ErrClosed) {
		return ErrClosed
	}
	s.hooks.WriteFailed(k, err)
	s.log.Error("failed to save user data", keyFields(k, err))
	return &PersistError{Key: k, Err: err}
}
