package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmreyes/storegate/internal/auth"
	"github.com/tmreyes/storegate/internal/models"
	"github.com/tmreyes/storegate/internal/security"
	pkgauth "github.com/tmreyes/storegate/pkg/auth"
)

// UserRepository defines the credential store contract the auth flow needs.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// AuthService orchestrates login, registration, and token refresh on top of
// the security components: rate limiter and lockout tracker run before the
// password check, the token codec runs after it.
type AuthService struct {
	repo    UserRepository
	codec   *auth.TokenCodec
	limiter *security.RateLimiter
	lockout *security.LockoutTracker
	logger  *slog.Logger
}

func NewAuthService(
	repo UserRepository,
	codec *auth.TokenCodec,
	limiter *security.RateLimiter,
	lockout *security.LockoutTracker,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		repo:    repo,
		codec:   codec,
		limiter: limiter,
		lockout: lockout,
		logger:  logger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// AuthResponse represents the response from auth operations. The session
// token is set as a cookie by the handler, never returned in the body.
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`

	SessionToken string `json:"-"`
}

// Login authenticates a user and returns tokens.
//
// Ordering matters: the per-IP rate limit and the per-email lockout are
// checked before the bcrypt comparison, so a limited or locked caller never
// reaches the expensive hash check.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		return nil, models.ErrUnauthorized
	}

	if !s.limiter.Allow(ipAddress, security.PolicyLogin) {
		s.logger.Warn("login rate limited", slog.String("ip_address", ipAddress))
		return nil, models.ErrRateLimited
	}

	if status := s.lockout.IsLocked(email); status.Locked {
		s.logger.Info("login blocked: account locked")
		return nil, &models.AccountLockedError{LockedUntil: *status.LockedUntil}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown emails feed the same failure counter as wrong
			// passwords, so the lockout response does not reveal whether the
			// account exists.
			s.logger.Info("login failed: invalid credentials")
			return nil, s.failureResult(email)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("login blocked due to account state",
			slog.Int64("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		return nil, s.failureResult(email)
	}

	s.lockout.RecordSuccess(email)

	resp, err := s.mintTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return resp, nil
}

// failureResult records a failed attempt and maps the outcome: a lock that
// just engaged surfaces as AccountLockedError, otherwise plain unauthorized.
func (s *AuthService) failureResult(email string) error {
	status := s.lockout.RecordFailure(email)
	if status.Locked {
		return &models.AccountLockedError{LockedUntil: *status.LockedUntil}
	}
	return models.ErrUnauthorized
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, email, password, fullName, ipAddress string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)

	if email == "" {
		return nil, fmt.Errorf("email is required: %w", models.ErrBadRequest)
	}
	if fullName == "" {
		return nil, fmt.Errorf("full name is required: %w", models.ErrBadRequest)
	}

	if !s.limiter.Allow(ipAddress, security.PolicyRegister) {
		s.logger.Warn("registration rate limited", slog.String("ip_address", ipAddress))
		return nil, models.ErrRateLimited
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FullName:     fullName,
		Role:         models.RoleUser,
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("registration failed: user already exists")
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp, err := s.mintTokens(createdUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", createdUser.ID))
	return resp, nil
}

// RefreshToken exchanges a valid refresh token for a new token set.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken, ipAddress string) (*AuthResponse, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	if !s.limiter.Allow(ipAddress, security.PolicyRefresh) {
		s.logger.Warn("token refresh rate limited", slog.String("ip_address", ipAddress))
		return nil, models.ErrRateLimited
	}

	identity, err := s.codec.Verify(auth.TokenKindRefresh, refreshToken)
	if err != nil {
		s.logger.Info("refresh token rejected")
		return nil, models.ErrUnauthorized
	}

	// Re-read the user so a role or status change lands in the new tokens.
	user, err := s.repo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh",
			slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("token refresh blocked due to account state",
			slog.Int64("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, models.ErrUnauthorized
	}

	resp, err := s.mintTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("token refreshed", slog.Int64("user_id", user.ID))
	return resp, nil
}

// ClearLockout is the administrative unlock for a specific email.
func (s *AuthService) ClearLockout(email string) {
	s.lockout.Clear(email)
	s.limiter.Reset(strings.ToLower(strings.TrimSpace(email)))
	s.logger.Info("lockout cleared by administrator")
}

// mintTokens issues the access/refresh pair plus the cookie session token.
func (s *AuthService) mintTokens(user *models.User) (*AuthResponse, error) {
	identity := user.Identity()

	accessToken, err := s.codec.Issue(auth.TokenKindAccess, identity, 0)
	if err != nil {
		s.logger.Error("failed to issue access token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.codec.Issue(auth.TokenKindRefresh, identity, 0)
	if err != nil {
		s.logger.Error("failed to issue refresh token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	sessionToken, err := s.codec.Issue(auth.TokenKindSession, identity, 0)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionToken: sessionToken,
		User:         userModelToResponse(user),
	}, nil
}

// validateAccountState checks if user account is in valid state for authentication
func validateAccountState(user *models.User) error {
	switch user.Status {
	case "disabled":
		return models.ErrAccountDisabled
	case "suspended":
		return models.ErrAccountSuspended
	case "active":
		return nil
	default:
		return fmt.Errorf("unknown account status: %s", user.Status)
	}
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}
