package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*SessionResolver, *TokenCodec) {
	t.Helper()
	codec := NewTokenCodec(testAuthConfig())
	return NewSessionResolver(codec, slog.Default()), codec
}

func TestSessionResolver_BearerToken(t *testing.T) {
	resolver, codec := newTestResolver(t)
	identity := testIdentity()

	accessToken, err := codec.Issue(TokenKindAccess, identity, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	got := resolver.Resolve(req)
	require.NotNil(t, got)
	assert.Equal(t, identity, *got)
}

func TestSessionResolver_SessionCookieFallback(t *testing.T) {
	resolver, codec := newTestResolver(t)
	identity := testIdentity()

	sessionToken, err := codec.Issue(TokenKindSession, identity, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionToken})

	got := resolver.Resolve(req)
	require.NotNil(t, got)
	assert.Equal(t, identity, *got)
}

func TestSessionResolver_BearerTakesPriority(t *testing.T) {
	resolver, codec := newTestResolver(t)

	bearerIdentity := testIdentity()
	cookieIdentity := testIdentity()
	cookieIdentity.UserID = 99
	cookieIdentity.Email = "other@example.com"

	accessToken, err := codec.Issue(TokenKindAccess, bearerIdentity, 0)
	require.NoError(t, err)
	sessionToken, err := codec.Issue(TokenKindSession, cookieIdentity, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionToken})

	got := resolver.Resolve(req)
	require.NotNil(t, got)
	assert.Equal(t, bearerIdentity.UserID, got.UserID)
}

func TestSessionResolver_InvalidBearerFallsBackToCookie(t *testing.T) {
	resolver, codec := newTestResolver(t)
	identity := testIdentity()

	sessionToken, err := codec.Issue(TokenKindSession, identity, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionToken})

	got := resolver.Resolve(req)
	require.NotNil(t, got)
	assert.Equal(t, identity.UserID, got.UserID)
}

func TestSessionResolver_WrongKindInBearerRejected(t *testing.T) {
	resolver, codec := newTestResolver(t)

	// A refresh token in the Authorization header must not authenticate
	refreshToken, err := codec.Issue(TokenKindRefresh, testIdentity(), 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	assert.Nil(t, resolver.Resolve(req))
}

func TestSessionResolver_AccessTokenInCookieRejected(t *testing.T) {
	resolver, codec := newTestResolver(t)

	accessToken, err := codec.Issue(TokenKindAccess, testIdentity(), 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: accessToken})

	assert.Nil(t, resolver.Resolve(req))
}

func TestSessionResolver_NoCredentials(t *testing.T) {
	resolver, _ := newTestResolver(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	assert.Nil(t, resolver.Resolve(req))
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", ""},
		{"well formed", "Bearer abc123", "abc123"},
		{"case insensitive scheme", "bearer abc123", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.want, extractBearerToken(req))
		})
	}
}
