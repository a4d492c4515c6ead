// Package sloghooks reports cachekit events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cachekit"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery   uint64
	LockForcedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr   atomic.Uint64
	lockForcedCtr atomic.Uint64
}

var _ cachekit.Hooks = (*Hooks)(nil)

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

func (h *Hooks) LockForced(storageKey string, waited time.Duration) {
	if h.l == nil || !sample(h.opts.LockForcedEvery, &h.lockForcedCtr) {
		return
	}
	h.l.Warn("cachekit.lock_forced",
		"key", h.redact(storageKey),
		"waited", waited)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("cachekit.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ExpiredPurged(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Debug("cachekit.expired_purged",
		"key", h.redact(storageKey))
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("cachekit.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) LockError(storageKey, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cachekit.lock_error",
		"key", h.redact(storageKey),
		"op", op,
		"err", err)
}

func (h *Hooks) PrepareError(dir string, err error) {
	if h.l == nil {
		return
	}
	// dirs are configuration, not user data; no redaction
	h.l.Error("cachekit.prepare_error",
		"dir", dir,
		"err", err)
}
