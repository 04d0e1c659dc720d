package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/tmreyes/storegate/internal/auth"
	pkghttp "github.com/tmreyes/storegate/pkg/http"
)

// CSRFHeaderName is checked before the body field when extracting the
// supplied token; the first non-empty source wins.
const CSRFHeaderName = "X-CSRF-Token"

const csrfBodyField = "csrf_token"

// maxBufferedBody caps how much of a request body the extractor will read
// looking for the CSRF field.
const maxBufferedBody = 1 << 20

// CSRFProtection validates anti-forgery tokens on state-changing requests
// (POST, PUT, DELETE, PATCH). Read-only methods bypass the check.
// Must be mounted after auth.RequireAuth so the identity is resolved.
func CSRFProtection(guard *auth.CSRFGuard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			identity := auth.IdentityFromContext(r.Context())
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			suppliedToken := extractCSRFToken(r)
			if suppliedToken == "" {
				logger.Warn("csrf token missing",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int64("user_id", identity.UserID))
				pkghttp.WriteForbidden(w, "CSRF token missing")
				return
			}

			if !guard.Verify(*identity, suppliedToken) {
				logger.Warn("csrf token rejected",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int64("user_id", identity.UserID))
				pkghttp.WriteForbidden(w, "CSRF token invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractCSRFToken looks for the supplied token in the header first, then in
// the request body's csrf_token field. The body is buffered and restored so
// the downstream handler can still decode it.
func extractCSRFToken(r *http.Request) string {
	if token := r.Header.Get(CSRFHeaderName); token != "" {
		return token
	}

	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBufferedBody))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	var token string
	if raw, ok := fields[csrfBodyField]; ok {
		_ = json.Unmarshal(raw, &token)
	}
	return token
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
