package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT payload for all three token kinds.
type TokenClaims struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

func (c *TokenClaims) Identity() Identity {
	return Identity{
		UserID:   c.UserID,
		Email:    c.Email,
		Role:     c.Role,
		FullName: c.FullName,
	}
}

// ClaimsView is a decoded-but-unverified token payload. It exists only for
// diagnostics and logging; nothing in it may feed an authorization decision.
// Verify returns Identity, this does not, on purpose.
type ClaimsView struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Audience  string `json:"audience"`
	ExpiresAt int64  `json:"expires_at"`
}
