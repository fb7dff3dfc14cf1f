// Package sloghooks reports storage events through log/slog. Keys are
// redacted by default since logical keys often carry user identifiers.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvault"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredEvery uint64
	CorruptEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr atomic.Uint64
	corruptCtr atomic.Uint64
}

var _ kvault.Hooks = (*Hooks)(nil)

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

func (h *Hooks) ExpiredOnRead(storageKey string) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("kvault.expired_on_read",
		"key", h.redact(storageKey))
}

func (h *Hooks) CorruptOnRead(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.CorruptEvery, &h.corruptCtr) {
		return
	}
	h.l.Warn("kvault.corrupt_on_read",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) BackendError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("kvault.backend_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

// EncryptionFallback is never sampled: every occurrence means data was
// written or read without the configured protection.
func (h *Hooks) EncryptionFallback(reason string) {
	if h.l == nil {
		return
	}
	h.l.Error("kvault.encryption_fallback",
		"reason", reason)
}
