package middleware

import (
	"net/http"

	"github.com/go-chi/httprate"
	"github.com/tmreyes/storegate/internal/security"
)

// APIRateLimit is the coarse per-IP shield on the whole API surface. The
// fine-grained, identifier-aware limiting for the auth endpoints lives in
// internal/security and runs inside the service layer.
func APIRateLimit() func(next http.Handler) http.Handler {
	policy := security.PolicyAPI

	return httprate.Limit(
		policy.MaxRequests,
		policy.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests. Please try again later."}`))
		}),
	)
}
