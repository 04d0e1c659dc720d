package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tmreyes/storegate/internal/config"
	"github.com/tmreyes/storegate/internal/models"
)

// TokenKind selects the secret key, audience, and default TTL used to sign
// and verify a token. A token minted for one kind never verifies as another:
// the kinds use distinct secrets AND distinct audiences, and either mismatch
// alone is enough to reject.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
	TokenKindSession TokenKind = "session"
)

// Issuer is the fixed iss claim on every token this service mints.
const Issuer = "storegate"

const (
	AudienceAccess  = "storegate:access"
	AudienceRefresh = "storegate:refresh"
	AudienceSession = "storegate:session"
)

type kindParams struct {
	secret   []byte
	audience string
	ttl      time.Duration
}

// TokenCodec signs and verifies the three token kinds. It is stateless: both
// Issue and Verify are pure functions of their inputs and the clock.
type TokenCodec struct {
	kinds map[TokenKind]kindParams
	now   func() time.Time
}

// NewTokenCodec creates a TokenCodec from validated auth configuration.
func NewTokenCodec(cfg config.AuthConfig) *TokenCodec {
	return &TokenCodec{
		kinds: map[TokenKind]kindParams{
			TokenKindAccess: {
				secret:   []byte(cfg.AccessTokenSecret),
				audience: AudienceAccess,
				ttl:      cfg.AccessTokenExpiry,
			},
			TokenKindRefresh: {
				secret:   []byte(cfg.RefreshTokenSecret),
				audience: AudienceRefresh,
				ttl:      cfg.RefreshTokenExpiry,
			},
			TokenKindSession: {
				secret:   []byte(cfg.SessionTokenSecret),
				audience: AudienceSession,
				ttl:      cfg.SessionTokenExpiry,
			},
		},
		now: time.Now,
	}
}

// WithClock overrides the time source. Call before use; intended for tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Issue builds a signed token of the given kind carrying the identity.
// A ttl <= 0 uses the kind's configured default.
func (c *TokenCodec) Issue(kind TokenKind, identity models.Identity, ttl time.Duration) (string, error) {
	params, ok := c.kinds[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind: %s", kind)
	}
	if ttl <= 0 {
		ttl = params.ttl
	}

	now := c.now()
	claims := &models.TokenClaims{
		UserID:   identity.UserID,
		Email:    identity.Email,
		Role:     identity.Role,
		FullName: identity.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{params.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(params.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return signed, nil
}

// Verify checks signature, issuer, audience, and time window for the given
// kind and returns the embedded identity. Every failure cause collapses to
// models.ErrInvalidToken so callers cannot distinguish which check failed.
func (c *TokenCodec) Verify(kind TokenKind, tokenString string) (*models.Identity, error) {
	params, ok := c.kinds[kind]
	if !ok {
		return nil, models.ErrInvalidToken
	}

	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return params.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(params.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidToken
	}

	if claims.UserID == 0 {
		return nil, models.ErrInvalidToken
	}

	identity := claims.Identity()
	return &identity, nil
}

// DecodeUnsafe parses the payload without verifying the signature. The
// returned ClaimsView is for diagnostics and logging only; it carries no
// proof of authenticity and must never feed an authorization decision.
func (c *TokenCodec) DecodeUnsafe(tokenString string) *models.ClaimsView {
	claims := &models.TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}

	view := &models.ClaimsView{
		UserID: claims.UserID,
		Email:  claims.Email,
	}
	if len(claims.Audience) > 0 {
		view.Audience = claims.Audience[0]
	}
	if claims.ExpiresAt != nil {
		view.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return view
}
