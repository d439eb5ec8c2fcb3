package onboarding

import (
	"math"
	"sync"
	"time"
)

// DefaultMaxAttempts is the number of consecutive failures that trips
// the lockout.
const DefaultMaxAttempts = 10

// DefaultLockoutWindow is how long a tripped lockout holds.
const DefaultLockoutWindow = 10 * time.Minute

// LockoutDecision is the answer to a pre-authentication check.
type LockoutDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterMinutes returns the retry hint rounded up to whole
// minutes, at least 1 while locked.
func (d LockoutDecision) RetryAfterMinutes() int {
	if d.Allowed || d.RetryAfter <= 0 {
		return 0
	}
	m := int(math.Ceil(d.RetryAfter.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}

// LockoutGuard tracks failed-attempt counters per credential and
// enforces a temporary lockout. It is an injected capability so
// multi-instance deployments can back it with a shared cache instead
// of per-process memory.
type LockoutGuard interface {
	CheckAllowed(credential string) LockoutDecision
	RecordFailure(credential string)
	RecordSuccess(credential string)
}

type lockoutEntry struct {
	count       int
	lastFailure time.Time
}

// MemoryLockoutGuard is the in-process implementation: a mutex-guarded
// map keyed by the lower-cased credential. Entries reset lazily when
// the window elapses; there is no background sweep. Keys are real user
// identifiers, so unbounded growth is a scaling caveat rather than an
// attack surface.
type MemoryLockoutGuard struct {
	mu          sync.Mutex
	entries     map[string]*lockoutEntry
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewMemoryLockoutGuard creates a guard with the default limits.
func NewMemoryLockoutGuard() *MemoryLockoutGuard {
	return &MemoryLockoutGuard{
		entries:     map[string]*lockoutEntry{},
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultLockoutWindow,
		now:         time.Now,
	}
}

// WithLimits overrides the attempt ceiling and lockout window.
func (g *MemoryLockoutGuard) WithLimits(maxAttempts int, window time.Duration) *MemoryLockoutGuard {
	if maxAttempts > 0 {
		g.maxAttempts = maxAttempts
	}
	if window > 0 {
		g.window = window
	}
	return g
}

// WithClock overrides the time source, used by tests.
func (g *MemoryLockoutGuard) WithClock(now func() time.Time) *MemoryLockoutGuard {
	if now != nil {
		g.now = now
	}
	return g
}

// CheckAllowed reports whether the credential may attempt
// authentication right now.
func (g *MemoryLockoutGuard) CheckAllowed(credential string) LockoutDecision {
	key := NormalizeEmail(credential)

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[key]
	if !ok || entry.count < g.maxAttempts {
		return LockoutDecision{Allowed: true}
	}

	deadline := entry.lastFailure.Add(g.window)
	now := g.now()
	if now.Before(deadline) {
		return LockoutDecision{Allowed: false, RetryAfter: deadline.Sub(now)}
	}

	// Window elapsed: allow again, but leave the counter one short of
	// the ceiling so a single further failure re-trips the lockout.
	entry.count = g.maxAttempts - 1
	return LockoutDecision{Allowed: true}
}

// RecordFailure increments the failure counter for the credential.
func (g *MemoryLockoutGuard) RecordFailure(credential string) {
	key := NormalizeEmail(credential)

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[key]
	if !ok {
		entry = &lockoutEntry{}
		g.entries[key] = entry
	}
	entry.count++
	entry.lastFailure = g.now()
}

// RecordSuccess clears the failure counter for the credential.
func (g *MemoryLockoutGuard) RecordSuccess(credential string) {
	key := NormalizeEmail(credential)

	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.entries, key)
}

var _ LockoutGuard = (*MemoryLockoutGuard)(nil)
