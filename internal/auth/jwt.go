// Package auth provides the OAuth provider adapters and the session
// transport for the rewards API.
//
// SESSION MODEL:
// A session is a signed JWT in an HttpOnly cookie whose Subject claim is
// the internal account ID. The server keeps no session table — the
// signature alone proves the cookie was issued here, and the account ID is
// resolved against the store per request. Logout is purely client-side:
// clearing the cookie unbinds the session without touching the store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionIssuer is the "iss" claim stamped on every session token; tokens
// minted by other applications with the same secret are still rejected.
const sessionIssuer = "dev-rewards"

// SessionTTL is how long a session cookie stays valid. Re-authenticating
// through a provider is a couple of redirects, so erring short is cheap.
const SessionTTL = 7 * 24 * time.Hour

// TokenService signs and verifies session tokens.
//
// It holds the HMAC secret used for both operations. HS256 is symmetric —
// fine for a single service that is both issuer and verifier.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; the account ID travels in Subject.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a session token bound to the given account.
func (s *TokenService) Generate(accountID string) (string, error) {
	return s.GenerateWithDuration(accountID, SessionTTL)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests
// to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(accountID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    sessionIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token, returning the account ID it
// is bound to. Pinning the accepted algorithms to HS256 closes the
// algorithm-confusion hole where a crafted header downgrades verification.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: session expired")
		}
		return "", fmt.Errorf("auth: invalid session token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid session claims")
	}

	if c.Subject == "" {
		return "", errors.New("auth: session token has no subject")
	}

	return c.Subject, nil
}
