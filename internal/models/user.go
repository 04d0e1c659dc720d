package models

import (
	"time"
)

// Role values stored on users and carried inside token claims.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Role         string // RoleAdmin or RoleUser
	Status       string // "active", "suspended", "disabled"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated snapshot carried inside every token and
// session payload. Immutable once issued; a fresh snapshot requires a new
// token.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Role:     u.Role,
		FullName: u.FullName,
	}
}
