// Package reqlock implements C11, the Request Lock: short-lived
// per-caller/action/transaction mutual exclusion. In-memory only — pure
// synchronization, no I/O, so (per DESIGN.md) no third-party dependency
// applies here.
package reqlock

import (
	"sync"
	"time"

	"github.com/CashierHQ/cashier-sub001/apierr"
)

// Key identifies a lock fingerprint: (caller, kind, subject) (§3).
type Key struct {
	Caller  string
	Kind    string
	Subject string
}

// LockKey is the handle returned by Acquire and passed back to Drop.
type LockKey struct {
	key        Key
	acquiredAt time.Time
}

type entry struct {
	acquiredAt time.Time
}

// Table is the process-wide singleton lock table (§9 "Global mutable
// state" — accessed through an explicit handle, not ambiently).
type Table struct {
	mu   sync.Mutex
	ttl  time.Duration
	locks map[Key]entry
	now  func() time.Time
}

// New builds a Table whose locks are considered abandoned after ttl
// (§4.11: "a fixed TTL, order of minutes").
func New(ttl time.Duration) *Table {
	return &Table{ttl: ttl, locks: make(map[Key]entry), now: time.Now}
}

// Acquire takes the lock for key, failing with Locked if a non-expired
// lock already exists for the fingerprint. An expired lock is silently
// replaced.
func (t *Table) Acquire(caller, kind, subject string) (LockKey, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{Caller: caller, Kind: kind, Subject: subject}
	now := t.now()
	if existing, ok := t.locks[key]; ok {
		if now.Sub(existing.acquiredAt) < t.ttl {
			return LockKey{}, apierr.Locked()
		}
	}

	t.locks[key] = entry{acquiredAt: now}
	return LockKey{key: key, acquiredAt: now}, nil
}

// Drop releases lk. Idempotent: dropping an already-dropped or
// since-replaced lock is a no-op, never an error, so callers can call it
// unconditionally on every exit path (§4.11).
func (t *Table) Drop(lk LockKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.locks[lk.key]; ok && current.acquiredAt.Equal(lk.acquiredAt) {
		delete(t.locks, lk.key)
	}
}

// Sweep removes any lock older than the TTL. Safe to call periodically;
// Acquire already self-heals against an expired lock, so Sweep exists
// only to bound the table's memory footprint.
func (t *Table) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, e := range t.locks {
		if now.Sub(e.acquiredAt) >= t.ttl {
			delete(t.locks, k)
		}
	}
}
