package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmreyes/storegate/internal/auth"
	"github.com/tmreyes/storegate/internal/models"
)

func csrfTestIdentity() models.Identity {
	return models.Identity{
		UserID: 42,
		Email:  "user@example.com",
		Role:   models.RoleUser,
	}
}

func csrfRequest(method, body string, identity *models.Identity) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/auth/logout", reader)
	if identity != nil {
		ctx := context.WithValue(req.Context(), auth.IdentityContextKey, identity)
		req = req.WithContext(ctx)
	}
	return req
}

func serveCSRF(guard *auth.CSRFGuard, req *http.Request) (*httptest.ResponseRecorder, bool) {
	reached := false
	handler := CSRFProtection(guard, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, reached
}

func TestCSRFProtection_ValidHeaderToken(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)
	identity := csrfTestIdentity()

	token, err := guard.Issue(identity)
	require.NoError(t, err)

	req := csrfRequest(http.MethodPost, "", &identity)
	req.Header.Set(CSRFHeaderName, token)

	rec, reached := serveCSRF(guard, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestCSRFProtection_ValidBodyToken(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)
	identity := csrfTestIdentity()

	token, err := guard.Issue(identity)
	require.NoError(t, err)

	body := `{"csrf_token":"` + token + `","email":"user@example.com"}`
	req := csrfRequest(http.MethodPost, body, &identity)

	rec, reached := serveCSRF(guard, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestCSRFProtection_BodyRestoredForHandler(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)
	identity := csrfTestIdentity()

	token, err := guard.Issue(identity)
	require.NoError(t, err)

	body := `{"csrf_token":"` + token + `","email":"user@example.com"}`
	req := csrfRequest(http.MethodPost, body, &identity)

	var decoded struct {
		Email string `json:"email"`
	}
	handler := CSRFProtection(guard, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", decoded.Email)
}

func TestCSRFProtection_MissingToken(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)
	identity := csrfTestIdentity()

	req := csrfRequest(http.MethodPost, "", &identity)
	rec, reached := serveCSRF(guard, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestCSRFProtection_WrongToken(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)
	identity := csrfTestIdentity()

	_, err := guard.Issue(identity)
	require.NoError(t, err)

	req := csrfRequest(http.MethodPost, "", &identity)
	req.Header.Set(CSRFHeaderName, "not-the-issued-token")

	rec, reached := serveCSRF(guard, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestCSRFProtection_NoIdentity(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)

	req := csrfRequest(http.MethodPost, "", nil)
	req.Header.Set(CSRFHeaderName, "anything")

	rec, reached := serveCSRF(guard, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestCSRFProtection_SafeMethodsBypass(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)
	identity := csrfTestIdentity()

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := csrfRequest(method, "", &identity)
		rec, reached := serveCSRF(guard, req)

		assert.Equal(t, http.StatusOK, rec.Code, "method %s", method)
		assert.True(t, reached, "method %s", method)
	}
}

func TestCSRFProtection_HeaderWinsOverBody(t *testing.T) {
	guard := auth.NewCSRFGuard(time.Hour)
	identity := csrfTestIdentity()

	token, err := guard.Issue(identity)
	require.NoError(t, err)

	// Valid token in the body is ignored when the header carries a bad one
	body := `{"csrf_token":"` + token + `"}`
	req := csrfRequest(http.MethodPost, body, &identity)
	req.Header.Set(CSRFHeaderName, "bad-token")

	rec, reached := serveCSRF(guard, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}
