package security

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < PolicyLogin.MaxRequests; i++ {
		assert.True(t, rl.Allow("1.2.3.4", PolicyLogin), "request %d should pass", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4", PolicyLogin))
}

func TestRateLimiter_IdentifiersIndependent(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < PolicyLogin.MaxRequests; i++ {
		rl.Allow("1.2.3.4", PolicyLogin)
	}

	assert.False(t, rl.Allow("1.2.3.4", PolicyLogin))
	assert.True(t, rl.Allow("5.6.7.8", PolicyLogin))
}

func TestRateLimiter_PoliciesIndependent(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < PolicyLogin.MaxRequests; i++ {
		rl.Allow("1.2.3.4", PolicyLogin)
	}

	assert.False(t, rl.Allow("1.2.3.4", PolicyLogin))
	assert.True(t, rl.Allow("1.2.3.4", PolicyRefresh))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := start
	rl := NewRateLimiter().WithClock(func() time.Time { return clock })

	// Fill the window: 5 requests over the first 5 minutes
	for i := 0; i < PolicyLogin.MaxRequests; i++ {
		clock = start.Add(time.Duration(i) * time.Minute)
		assert.True(t, rl.Allow("1.2.3.4", PolicyLogin))
	}

	clock = start.Add(6 * time.Minute)
	assert.False(t, rl.Allow("1.2.3.4", PolicyLogin))

	// 15m1s after the first request it slides out of the window
	clock = start.Add(PolicyLogin.Window + time.Second)
	assert.True(t, rl.Allow("1.2.3.4", PolicyLogin))
}

func TestRateLimiter_RejectedRequestsRecordNothing(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := start
	rl := NewRateLimiter().WithClock(func() time.Time { return clock })

	for i := 0; i < PolicyLogin.MaxRequests; i++ {
		rl.Allow("1.2.3.4", PolicyLogin)
	}

	// Hammer the full window; rejections must not push it forward
	for i := 0; i < 50; i++ {
		clock = start.Add(time.Duration(i) * time.Second)
		assert.False(t, rl.Allow("1.2.3.4", PolicyLogin))
	}

	// All 5 accepted timestamps were at start, so the window frees up
	// exactly one policy window later, regardless of the hammering.
	clock = start.Add(PolicyLogin.Window + time.Second)
	assert.True(t, rl.Allow("1.2.3.4", PolicyLogin))
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter()

	assert.Equal(t, PolicyLogin.MaxRequests, rl.Remaining("1.2.3.4", PolicyLogin))

	rl.Allow("1.2.3.4", PolicyLogin)
	rl.Allow("1.2.3.4", PolicyLogin)
	assert.Equal(t, PolicyLogin.MaxRequests-2, rl.Remaining("1.2.3.4", PolicyLogin))

	for i := 0; i < 10; i++ {
		rl.Allow("1.2.3.4", PolicyLogin)
	}
	assert.Equal(t, 0, rl.Remaining("1.2.3.4", PolicyLogin))
}

func TestRateLimiter_RemainingIsNonDestructive(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 100; i++ {
		rl.Remaining("1.2.3.4", PolicyLogin)
	}
	assert.True(t, rl.Allow("1.2.3.4", PolicyLogin))
	assert.Equal(t, PolicyLogin.MaxRequests-1, rl.Remaining("1.2.3.4", PolicyLogin))
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < PolicyLogin.MaxRequests; i++ {
		rl.Allow("user@example.com", PolicyLogin)
	}
	for i := 0; i < PolicyRefresh.MaxRequests; i++ {
		rl.Allow("user@example.com", PolicyRefresh)
	}
	rl.Allow("other@example.com", PolicyLogin)

	rl.Reset("user@example.com")

	// Both policy windows for the identifier are gone
	assert.Equal(t, PolicyLogin.MaxRequests, rl.Remaining("user@example.com", PolicyLogin))
	assert.Equal(t, PolicyRefresh.MaxRequests, rl.Remaining("user@example.com", PolicyRefresh))

	// Unrelated identifiers keep their state
	assert.Equal(t, PolicyLogin.MaxRequests-1, rl.Remaining("other@example.com", PolicyLogin))
}

func TestRateLimiter_EvictionBoundsMemory(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < windowCacheSize+100; i++ {
		rl.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256), PolicyAPI)
	}

	assert.LessOrEqual(t, rl.windows.Len(), windowCacheSize)
}

func TestPolicyByName(t *testing.T) {
	for _, p := range []Policy{PolicyLogin, PolicyRegister, PolicyRefresh, PolicyAPI, PolicyPasswordReset} {
		got, ok := PolicyByName(p.Name)
		assert.True(t, ok)
		assert.Equal(t, p, got)
	}

	_, ok := PolicyByName("nonexistent")
	assert.False(t, ok)
}

func TestWindowKey_IncludesPolicyParameters(t *testing.T) {
	a := windowKey("1.2.3.4", PolicyLogin)
	loosened := Policy{Name: PolicyLogin.Name, MaxRequests: 50, Window: PolicyLogin.Window}
	b := windowKey("1.2.3.4", loosened)

	assert.NotEqual(t, a, b)
}
