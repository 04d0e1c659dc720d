package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSetSessionCookie_HttpOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "token-value", time.Hour, CookieConfig{SameSite: "lax"})

	cookie := findCookie(t, rec, SessionCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, "token-value", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestSetCSRFTokenCookie_ReadableByScripts(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCSRFTokenCookie(rec, "csrf-value", time.Hour, CookieConfig{SameSite: "strict"})

	cookie := findCookie(t, rec, CSRFCookieName)
	require.NotNil(t, cookie)
	assert.False(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestClearCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, CookieConfig{})
	ClearCSRFTokenCookie(rec, CookieConfig{})

	session := findCookie(t, rec, SessionCookieName)
	require.NotNil(t, session)
	assert.Equal(t, -1, session.MaxAge)
	assert.Empty(t, session.Value)

	csrf := findCookie(t, rec, CSRFCookieName)
	require.NotNil(t, csrf)
	assert.Equal(t, -1, csrf.MaxAge)
}

func TestGetSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc"})

	value, err := GetSessionCookie(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	_, err = GetSessionCookie(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
}
