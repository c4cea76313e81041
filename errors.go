package playstate

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument    = errors.New("playstate: invalid argument")
	ErrInvalidKey         = fmt.Errorf("%w: invalid key", ErrInvalidArgument)
	ErrNotInitialized     = errors.New("playstate: store not initialized")
	ErrAlreadyInitialized = errors.New("playstate: store already initialized")
	ErrClosed             = errors.New("playstate: store is shut down")
	// ErrCancelled is returned when the caller's context ended before a write
	// started. The context's own error is joined, so errors.Is(err,
	// context.Canceled) or context.DeadlineExceeded also holds.
	ErrCancelled = errors.New("playstate: cancelled")
)

func cancelled(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ArgumentError names the parameter a caller got wrong. It unwraps to
// ErrInvalidKey for userID/item and to ErrInvalidArgument otherwise.
type ArgumentError struct {
	Op    string
	Param string
	Err   error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("playstate: %s: invalid %s", e.Op, e.Param)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// CodecError is a record that could not be encoded or decoded.
type CodecError struct {
	Op  string // "encode" or "decode"
	Key Key
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("playstate: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// PersistError is a write transaction that failed and was rolled back.
type PersistError struct {
	Key Key
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("playstate: persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// UnavailableError is a backend that could not be opened at Init.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("playstate: backend unavailable: %v", e.Err)
	}
	return fmt.Sprintf("playstate: backend %q unavailable: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// InvalidateError is returned by Save when the record was committed but the
// shared cache tier could not drop the key's previous entry, either because the
// generation did not move or because the new entry was refused. The durable
// write stands; saving again repairs the cache.
type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("playstate: invalidate %q: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("playstate: invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("playstate: invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("playstate: invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
