package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/tmreyes/storegate/internal/models"
)

// csrfEntry stores the live token for one binding key
type csrfEntry struct {
	token  string
	expiry time.Time
}

// CSRFGuard issues and verifies anti-forgery tokens bound to a session key
// derived from the user id. At most one token is live per user: issuing a
// new one overwrites the previous entry.
type CSRFGuard struct {
	entries  map[string]*csrfEntry // binding key -> entry
	mu       sync.RWMutex
	tokenTTL time.Duration
	now      func() time.Time
}

// NewCSRFGuard creates a CSRF guard with the given token lifetime.
func NewCSRFGuard(tokenTTL time.Duration) *CSRFGuard {
	if tokenTTL <= 0 {
		tokenTTL = 1 * time.Hour
	}
	return &CSRFGuard{
		entries:  make(map[string]*csrfEntry),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Call before use; intended for tests.
func (g *CSRFGuard) WithClock(now func() time.Time) *CSRFGuard {
	if now != nil {
		g.now = now
	}
	return g
}

// Issue generates a fresh token for the identity, replacing any prior one.
func (g *CSRFGuard) Issue(identity models.Identity) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	token := hex.EncodeToString(randomBytes)

	g.mu.Lock()
	g.entries[bindingKey(identity)] = &csrfEntry{
		token:  token,
		expiry: g.now().Add(g.tokenTTL),
	}
	g.mu.Unlock()

	return token, nil
}

// Verify checks the supplied token against the identity's stored one. It
// fails closed: no entry, expired entry, or mismatch all return false. An
// expired entry is deleted on the way out.
func (g *CSRFGuard) Verify(identity models.Identity, suppliedToken string) bool {
	if suppliedToken == "" {
		return false
	}

	key := bindingKey(identity)

	g.mu.RLock()
	entry, exists := g.entries[key]
	g.mu.RUnlock()

	if !exists {
		return false
	}

	if g.now().After(entry.expiry) {
		g.mu.Lock()
		// Re-check under the write lock; a concurrent Issue may have
		// replaced the entry with a fresh one.
		if current, ok := g.entries[key]; ok && current == entry {
			delete(g.entries, key)
		}
		g.mu.Unlock()
		return false
	}

	return subtle.ConstantTimeCompare([]byte(entry.token), []byte(suppliedToken)) == 1
}

// Revoke removes the identity's token, e.g. on logout.
func (g *CSRFGuard) Revoke(identity models.Identity) {
	g.mu.Lock()
	delete(g.entries, bindingKey(identity))
	g.mu.Unlock()
}

// bindingKey derives the storage key from the identity. Deterministic so a
// verify always finds the entry its issue created.
func bindingKey(identity models.Identity) string {
	return fmt.Sprintf("session:%d", identity.UserID)
}
