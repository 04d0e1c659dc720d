package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tmreyes/storegate/internal/auth"
	"github.com/tmreyes/storegate/internal/models"
	"github.com/tmreyes/storegate/internal/observability"
	"github.com/tmreyes/storegate/internal/security"
	"github.com/tmreyes/storegate/internal/services"
	pkghttp "github.com/tmreyes/storegate/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	Register(ctx context.Context, email, password, fullName, ipAddress string) (*services.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken, ipAddress string) (*services.AuthResponse, error)
	ClearLockout(email string)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	csrfGuard    *auth.CSRFGuard
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
	sessionTTL   time.Duration
	csrfTTL      time.Duration
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service AuthServiceInterface,
	csrfGuard *auth.CSRFGuard,
	ipConfig *pkghttp.IPConfig,
	cookieConfig auth.CookieConfig,
	sessionTTL, csrfTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		service:      service,
		csrfGuard:    csrfGuard,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
		sessionTTL:   sessionTTL,
		csrfTTL:      csrfTTL,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,min=1"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ClearLockoutRequest represents the admin request to unlock an account
type ClearLockoutRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CSRFTokenResponse carries a freshly issued anti-forgery token
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// Login handles user login. On success the session token is set as an
// httpOnly cookie alongside the token pair in the body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		h.writeAuthError(w, err, security.PolicyLogin.Window)
		return
	}

	auth.SetSessionCookie(w, authResp.SessionToken, h.sessionTTL, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.Register(r.Context(), req.Email, req.Password, req.FullName, ipAddress)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration details")
		default:
			h.writeAuthError(w, err, security.PolicyRegister.Window)
		}
		return
	}

	auth.SetSessionCookie(w, authResp.SessionToken, h.sessionTTL, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusCreated, authResp)
}

// RefreshToken exchanges a refresh token for a fresh token set
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.RefreshToken(r.Context(), req.RefreshToken, ipAddress)
	if err != nil {
		h.writeAuthError(w, err, security.PolicyRefresh.Window)
		return
	}

	auth.SetSessionCookie(w, authResp.SessionToken, h.sessionTTL, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Logout drops the caller's CSRF token and clears the session cookie. The
// stateless tokens themselves stay valid until expiry; logout for the cookie
// path is client-side deletion.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		h.csrfGuard.Revoke(*identity)
	}

	auth.ClearSessionCookie(w, h.cookieConfig)
	auth.ClearCSRFTokenCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the identity resolved for the current request
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, identity)
}

// CSRFToken issues a fresh anti-forgery token for the authenticated caller.
// Issuing invalidates any previously issued token for the same user.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	token, err := h.csrfGuard.Issue(*identity)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.SetCSRFTokenCookie(w, token, h.csrfTTL, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, CSRFTokenResponse{CSRFToken: token})
}

// ClearLockout is the admin override that unlocks an account immediately
func (h *AuthHandler) ClearLockout(w http.ResponseWriter, r *http.Request) {
	var req ClearLockoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	h.service.ClearLockout(req.Email)
	w.WriteHeader(http.StatusNoContent)
}

// writeAuthError maps service errors to responses. Credential, token, and
// account-state failures all collapse to a generic 401 so the response never
// reveals which check failed. retryWindow is the rate-limit policy window of
// the endpoint, used for the Retry-After hint.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error, retryWindow time.Duration) {
	var lockedErr *models.AccountLockedError

	switch {
	case errors.As(err, &lockedErr):
		pkghttp.WriteAccountLocked(w, &lockedErr.LockedUntil)
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteRateLimited(w, retryWindow)
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrAccountDisabled),
		errors.Is(err, models.ErrAccountSuspended):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	default:
		observability.CaptureError(err)
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
