package security

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LockStatus reports whether an account is locked and until when. The
// failure count stays internal; handlers must never surface it to clients.
type LockStatus struct {
	Locked      bool
	LockedUntil *time.Time
}

type lockoutEntry struct {
	failureCount int
	lockedUntil  *time.Time
}

// LockoutTracker counts consecutive authentication failures per normalized
// email and blocks further attempts once the threshold is reached. Callers
// check IsLocked before doing the password comparison, so a locked account
// never reaches the hash check.
type LockoutTracker struct {
	mu              sync.Mutex
	entries         map[string]*lockoutEntry
	threshold       int
	lockoutDuration time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

func NewLockoutTracker(threshold int, lockoutDuration time.Duration, logger *slog.Logger) *LockoutTracker {
	if threshold <= 0 {
		threshold = 5
	}
	if lockoutDuration <= 0 {
		lockoutDuration = 30 * time.Minute
	}
	return &LockoutTracker{
		entries:         make(map[string]*lockoutEntry),
		threshold:       threshold,
		lockoutDuration: lockoutDuration,
		now:             time.Now,
		logger:          logger,
	}
}

// WithClock overrides the time source. Call before use; intended for tests.
func (t *LockoutTracker) WithClock(now func() time.Time) *LockoutTracker {
	if now != nil {
		t.now = now
	}
	return t
}

// RecordFailure increments the failure count and locks the account when the
// threshold is reached. Attempts made during an active lock are rejected
// without touching the counter or extending the lock; whether repeated
// attempts should extend the lock is an open policy question, and the
// current answer is no.
func (t *LockoutTracker) RecordFailure(email string) LockStatus {
	key := normalizeEmail(email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		entry = &lockoutEntry{}
		t.entries[key] = entry
	}

	if entry.lockedUntil != nil && now.Before(*entry.lockedUntil) {
		return LockStatus{Locked: true, LockedUntil: entry.lockedUntil}
	}

	entry.failureCount++
	if entry.failureCount >= t.threshold {
		until := now.Add(t.lockoutDuration)
		entry.lockedUntil = &until
		t.logger.Warn("account locked after repeated authentication failures",
			slog.Int("failure_count", entry.failureCount),
			slog.Time("locked_until", until))
	}

	return LockStatus{
		Locked:      entry.lockedUntil != nil && now.Before(*entry.lockedUntil),
		LockedUntil: entry.lockedUntil,
	}
}

// IsLocked reports the current lock state without mutating it. An expired
// lock reports unlocked, but the failure counter stays until RecordSuccess
// or Clear resets it.
func (t *LockoutTracker) IsLocked(email string) LockStatus {
	key := normalizeEmail(email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok || entry.lockedUntil == nil {
		return LockStatus{}
	}

	if now.Before(*entry.lockedUntil) {
		return LockStatus{Locked: true, LockedUntil: entry.lockedUntil}
	}
	return LockStatus{}
}

// RecordSuccess fully resets the email's failure history. One successful
// authentication wipes the slate.
func (t *LockoutTracker) RecordSuccess(email string) {
	key := normalizeEmail(email)

	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Clear is the administrative override: an unconditional reset, usable while
// the account is still locked.
func (t *LockoutTracker) Clear(email string) {
	key := normalizeEmail(email)

	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
