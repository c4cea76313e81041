// Package sloghooks reports playstate events through log/slog. Hot-path events
// are sampled; user ids are redacted.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/playstate"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	ReadThroughEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	readThroughCtr atomic.Uint64
}

var _ playstate.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

// CacheLookup is too hot to log; count it with hooks/prom instead.
func (h *Hooks) CacheLookup(bool) {}

func (h *Hooks) ReadThrough(k playstate.Key, found bool) {
	if h.l == nil || !sample(h.opts.ReadThroughEvery, &h.readThroughCtr) {
		return
	}
	h.l.Debug("playstate.read_through",
		"key", h.redact(k.String()),
		"found", found)
}

func (h *Hooks) CorruptRow(k playstate.Key, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("playstate.corrupt_row",
		"key", h.redact(k.String()),
		"item", k.Item,
		"err", err)
}

func (h *Hooks) WriteCommitted(k playstate.Key, elapsed time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Debug("playstate.write_committed",
		"key", h.redact(k.String()),
		"elapsed", elapsed)
}

func (h *Hooks) WriteFailed(k playstate.Key, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("playstate.write_failed",
		"key", h.redact(k.String()),
		"item", k.Item,
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("playstate.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("playstate.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("playstate.gen_snapshot_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) GenBumpError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("playstate.gen_bump_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) InvalidateOutage(storageKey string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("playstate.invalidate_outage",
		"key", h.redact(storageKey),
		"bump_err", bumpErr,
		"del_err", delErr)
}
