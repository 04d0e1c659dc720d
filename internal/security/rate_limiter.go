package security

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Policy is a named rate-limit configuration. Policies are fixed at compile
// time; the calling endpoint picks which one applies.
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

var (
	PolicyLogin         = Policy{Name: "login", MaxRequests: 5, Window: 15 * time.Minute}
	PolicyRegister      = Policy{Name: "register", MaxRequests: 3, Window: 1 * time.Hour}
	PolicyRefresh       = Policy{Name: "refresh", MaxRequests: 10, Window: 1 * time.Minute}
	PolicyAPI           = Policy{Name: "api", MaxRequests: 100, Window: 1 * time.Minute}
	PolicyPasswordReset = Policy{Name: "password_reset", MaxRequests: 3, Window: 1 * time.Hour}
)

// PolicyByName resolves a policy from its wire name.
func PolicyByName(name string) (Policy, bool) {
	switch name {
	case PolicyLogin.Name:
		return PolicyLogin, true
	case PolicyRegister.Name:
		return PolicyRegister, true
	case PolicyRefresh.Name:
		return PolicyRefresh, true
	case PolicyAPI.Name:
		return PolicyAPI, true
	case PolicyPasswordReset.Name:
		return PolicyPasswordReset, true
	}
	return Policy{}, false
}

const (
	// windowCacheSize bounds the number of distinct identifier+policy keys.
	// Under sustained load from many identifiers, least-recently-used
	// windows may be evicted before they expire naturally; an accepted
	// approximation that keeps memory bounded.
	windowCacheSize = 4096

	// windowCacheTTL is a coarse backstop that drops idle entries long after
	// any policy window has passed.
	windowCacheTTL = 2 * time.Hour
)

// RateLimiter answers "allowed?" and "how many remain?" for an arbitrary
// identifier (IP, email, user id) under a named policy, using a sliding
// window of accepted-request timestamps. State is process-local; losing it
// on restart costs the attacker one fresh window, nothing more.
type RateLimiter struct {
	mu      sync.Mutex
	windows *lru.LRU[string, []time.Time]
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: lru.NewLRU[string, []time.Time](windowCacheSize, nil, windowCacheTTL),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Call before use; intended for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// Allow reports whether a request from identifier is admitted under the
// policy and, if so, records its timestamp. Rejected requests record
// nothing: hammering a full window does not push the window forward.
func (rl *RateLimiter) Allow(identifier string, policy Policy) bool {
	now := rl.now()
	key := windowKey(identifier, policy)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	hits := rl.pruned(key, policy, now)
	if len(hits) >= policy.MaxRequests {
		rl.windows.Add(key, hits)
		return false
	}

	hits = append(hits, now)
	rl.windows.Add(key, hits)
	return true
}

// Remaining returns how many requests the identifier has left in the current
// window. Non-destructive: nothing is recorded or pruned from the store.
func (rl *RateLimiter) Remaining(identifier string, policy Policy) int {
	now := rl.now()
	threshold := now.Add(-policy.Window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	hits, ok := rl.windows.Peek(windowKey(identifier, policy))
	if !ok {
		return policy.MaxRequests
	}

	inWindow := 0
	for _, hit := range hits {
		if hit.After(threshold) {
			inWindow++
		}
	}

	remaining := policy.MaxRequests - inWindow
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset drops every policy variant of the identifier's windows.
func (rl *RateLimiter) Reset(identifier string) {
	prefix := identifier + "|"

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for _, key := range rl.windows.Keys() {
		if strings.HasPrefix(key, prefix) {
			rl.windows.Remove(key)
		}
	}
}

// pruned returns the key's timestamps still inside the policy window.
func (rl *RateLimiter) pruned(key string, policy Policy, now time.Time) []time.Time {
	threshold := now.Add(-policy.Window)

	hits, ok := rl.windows.Get(key)
	if !ok {
		return nil
	}

	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}
	return filtered
}

// windowKey includes the policy parameters so a policy change cannot be
// satisfied by stale counts recorded under different limits.
func windowKey(identifier string, policy Policy) string {
	return fmt.Sprintf("%s|%s|%d|%d", identifier, policy.Name, policy.MaxRequests, policy.Window.Milliseconds())
}
