package playstate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/playstate/backend"
	"github.com/unkn0wn-root/playstate/backend/sqlite"
	c "github.com/unkn0wn-root/playstate/codec"
	gen "github.com/unkn0wn-root/playstate/genstore"
)

type store[V any] struct {
	codec     c.Codec[V]
	open      backend.Opener
	path      string
	newRecord func() V
	log       Logger
	hooks     Hooks
	tier      tier[V]

	// gate admits one write transaction at a time.
	gate   *semaphore.Weighted
	flight singleflight.Group

	// mu guards be and closed. It is never held across I/O except in Init.
	mu           sync.RWMutex
	be           backend.Backend
	closed       bool
	shutdownOnce sync.Once
}

func newStore[V any](opts Options[V]) (*store[V], error) {
	if opts.Codec == nil {
		return nil, errors.New("playstate: codec is required")
	}
	if opts.Open == nil && strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("playstate: path or backend opener is required")
	}

	s := &store[V]{
		codec:     opts.Codec,
		open:      opts.Open,
		path:      opts.Path,
		newRecord: opts.NewRecord,
		gate:      semaphore.NewWeighted(1),
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if s.open == nil {
		s.open = sqlite.Opener(opts.Path, sqlite.Options{})
	}
	if s.newRecord == nil {
		s.newRecord = func() V { var zero V; return zero }
	}

	if opts.Provider == nil {
		s.tier = newLocalTier[V]()
		return s, nil
	}
	gs := opts.GenStore
	if gs == nil {
		// in-process generations with periodic cleanup
		gs = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	s.tier = &sharedTier[V]{
		ns:       coalesce(opts.Namespace, defaultNamespace),
		provider: opts.Provider,
		gen:      gs,
		codec:    opts.Codec,
		ttl:      opts.EntryTTL,
		log:      s.log,
		hooks:    s.hooks,
	}
	return s, nil
}

func (s *store[V]) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.be != nil {
		return ErrAlreadyInitialized
	}
	be, err := s.open(ctx)
	if err != nil {
		s.log.Error("failed to open user data store", Fields{"path": s.path, "err": err})
		return &UnavailableError{Path: s.path, Err: err}
	}
	s.be = be
	s.log.Debug("user data store opened", Fields{"path": s.path})
	return nil
}

func (s *store[V]) Get(ctx context.Context, userID uuid.UUID, item string) (V, error) {
	var zero V
	if ctx == nil {
		return zero, &ArgumentError{Op: "get", Param: "ctx", Err: ErrInvalidArgument}
	}
	k, err := newKey("get", userID, item)
	if err != nil {
		return zero, err
	}
	be, err := s.conn()
	if err != nil {
		return zero, err
	}

	if v, ok, err := s.tier.Load(ctx, k); err != nil {
		s.log.Warn("cache lookup failed", keyFields(k, err))
	} else if ok {
		s.hooks.CacheLookup(true)
		return v, nil
	}
	s.hooks.CacheLookup(false)

	// Concurrent misses for one key share a single backend read. The read is
	// detached from any one caller so a cancelled caller doesn't fail the rest.
	ch := s.flight.DoChan(k.String(), func() (any, error) {
		return s.readThrough(context.WithoutCancel(ctx), be, k)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		return zero, cancelled(ctx.Err())
	}
}

func (s *store[V]) readThrough(ctx context.Context, be backend.Backend, k Key) (V, error) {
	var zero V
	obs, snapErr := s.tier.Snapshot(ctx, k)

	raw, found, err := be.Read(ctx, k.UserID, k.Item)
	if err != nil {
		if s.isClosed() {
			return zero, ErrClosed
		}
		s.log.Error("failed to read user data", keyFields(k, err))
		return zero, fmt.Errorf("playstate: read %s: %w", k, err)
	}

	var v V
	if found {
		if v, err = s.codec.Decode(raw); err != nil {
			s.hooks.CorruptRow(k, err)
			s.log.Error("failed to decode user data", keyFields(k, err))
			return zero, &CodecError{Op: "decode", Key: k, Err: err}
		}
	} else {
		v = s.newRecord()
	}
	s.hooks.ReadThrough(k, found)

	if snapErr != nil {
		// generation unknown; serve without caching
		return v, nil
	}
	return s.tier.Fill(ctx, k, v, obs), nil
}

func (s *store[V]) Save(ctx context.Context, userID uuid.UUID, item string, record V) error {
	if ctx == nil {
		return &ArgumentError{Op: "save", Param: "ctx", Err: ErrInvalidArgument}
	}
	k, err := newKey("save", userID, item)
	if err != nil {
		return err
	}
	if isNil(record) {
		return &ArgumentError{Op: "save", Param: "record", Err: ErrInvalidArgument}
	}
	if _, err := s.conn(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// encode before taking the gate
	payload, err := s.codec.Encode(record)
	if err != nil {
		s.log.Error("failed to encode user data", keyFields(k, err))
		return &CodecError{Op: "encode", Key: k, Err: err}
	}

	return s.persist(ctx, k, payload, func() error {
		// once it's durable, make it visible to everyone else
		return s.tier.Store(context.WithoutCancel(ctx), k, record, payload)
	})
}

func (s *store[V]) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		// An in-flight write finishes first; writers queued behind us see ErrClosed.
		_ = s.gate.Acquire(context.Background(), 1)
		s.mu.Lock()
		be := s.be
		s.be = nil
		s.closed = true
		s.mu.Unlock()

		if be != nil {
			if err := be.Close(); err != nil {
				s.log.Error("error closing user data store", Fields{"path": s.path, "err": err})
			}
		}
		s.gate.Release(1)

		if err := s.tier.Close(ctx); err != nil {
			s.log.Error("error closing cache tier", Fields{"err": err})
		}
	})
}

func (s *store[V]) conn() (backend.Backend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.be == nil {
		return nil, ErrNotInitialized
	}
	return s.be, nil
}

func (s *store[V]) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
