// Package auth provides JWT session tokens, password hashing, and the
// bearer-token middleware for the lang-notes API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Client registers (POST /user/register) or logs in (POST /user/login/...)
// 2. Server issues TWO tokens:
//    - access token: short-lived (1h), sent as "Authorization: Bearer <t>"
//      on every protected request
//    - refresh token: long-lived (7d), held by the client and exchanged at
//      POST /user/refresh-token when the access token expires
// 3. Middleware validates the access token, looks the user up once, and puts
//    the resolved user in the request context for handlers
//
// WHY TWO TOKENS?
// A stolen access token is only useful for an hour. The refresh token is
// transmitted far less often (only to the refresh endpoint), which shrinks
// its exposure. Refreshing re-resolves the user in the database, so a deleted
// account can't mint new access tokens even with a valid refresh token.
//
// Both tokens are signed HS256 with one process-wide secret. A "typ" claim
// distinguishes them so a refresh token can never be replayed as an access
// token or vice versa.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/lang-notes/internal/model"
)

const issuer = "lang-notes"

// Token type discriminator values for the "typ" claim.
const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// AccessClaims is the payload of an access token.
//
// The Subject registered claim carries the user's internal ID. The profile
// fields are embedded so the client can render the logged-in user without an
// extra round trip — they are a snapshot at issue time, not live data.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	TokenType string `json:"typ"`
}

// RefreshClaims is the payload of a refresh token: just enough to re-resolve
// the user (Subject = user ID) plus the email for logging/debugging.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	TokenType string `json:"typ"`
}

// TokenService mints and validates both token kinds.
//
// It holds the HMAC secret used to sign and verify. The same secret must be
// used for both operations — keep it safe, rotate it periodically in
// production (rotation invalidates all outstanding sessions).
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetimes.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssueAccessToken signs a new access token for the user.
func (s *TokenService) IssueAccessToken(user *model.User) (string, error) {
	return s.IssueAccessTokenWithTTL(user, s.accessTTL)
}

// IssueAccessTokenWithTTL is IssueAccessToken with an explicit lifetime.
// Used in tests to mint already-expired tokens.
func (s *TokenService) IssueAccessTokenWithTTL(user *model.User, ttl time.Duration) (string, error) {
	now := time.Now()

	c := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		TokenType: typeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a new refresh token for the user.
func (s *TokenService) IssueRefreshToken(user *model.User) (string, error) {
	return s.IssueRefreshTokenWithTTL(user, s.refreshTTL)
}

// IssueRefreshTokenWithTTL is IssueRefreshToken with an explicit lifetime.
func (s *TokenService) IssueRefreshTokenWithTTL(user *model.User, ttl time.Duration) (string, error) {
	now := time.Now()

	c := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		Email:     user.Email,
		TokenType: typeRefresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing refresh token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies an access token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps signed with a reused secret)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Plus our own check that the "typ" claim says "access" — a refresh token
// presented on a protected route is rejected even though its signature is fine.
func (s *TokenService) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	c := &AccessClaims{}
	if err := s.parse(tokenStr, c); err != nil {
		return nil, err
	}
	if c.TokenType != typeAccess {
		return nil, fmt.Errorf("auth: token is not an access token")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	return c, nil
}

// ParseRefreshToken verifies a refresh token and returns its claims.
func (s *TokenService) ParseRefreshToken(tokenStr string) (*RefreshClaims, error) {
	c := &RefreshClaims{}
	if err := s.parse(tokenStr, c); err != nil {
		return nil, err
	}
	if c.TokenType != typeRefresh {
		return nil, fmt.Errorf("auth: token is not a refresh token")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	return c, nil
}

// parse runs the shared verification for both token kinds.
func (s *TokenService) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HMAC
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Translate jwt library errors into cleaner messages
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("auth: token expired")
		}
		return fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("auth: invalid token claims")
	}
	return nil
}
