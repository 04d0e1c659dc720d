package auth

import (
	"context"
	"net/http"
	"slices"

	"github.com/tmreyes/storegate/internal/models"
	pkghttp "github.com/tmreyes/storegate/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// IdentityContextKey is the key for storing the resolved identity in context
	IdentityContextKey contextKey = "identity"
)

// RequireAuth resolves the request's identity and rejects the request with
// 401 when no credential verifies. The identity is injected into the request
// context for downstream handlers.
func RequireAuth(resolver *SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := resolver.Resolve(r)
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces that the authenticated identity holds one of the given
// roles. Must be mounted after RequireAuth.
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !slices.Contains(roles, identity.Role) {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole restricted to the ADMIN role.
func RequireAdmin() func(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)
}

// IdentityFromContext extracts the resolved identity from a request context,
// or nil when the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
