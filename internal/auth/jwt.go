// Package auth verifies caller identity for the API.
//
// Identity management itself (accounts, credentials, sign-in) lives outside
// this service. What arrives here is a signed JWT; all we do is check the
// signature and expiry and read two facts out of it: who the caller is
// (the "sub" claim) and whether they hold the Administrator role (the
// "admin" claim). HS256 keeps this a single-secret, no-DB-lookup check.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "prommis"

// Identity is what a verified token tells us about the caller.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// TokenService signs and verifies the JWTs the API trusts.
// The same HMAC secret must be shared with whatever issues tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds the registered claims and adds the Administrator flag.
// "sub" carries the user ID.
type claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Generate creates and signs a token for the given identity, valid for
// 24 hours.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, 24*time.Hour)
}

// GenerateWithDuration creates a token with a custom expiry.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Admin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the identity it
// asserts. The library checks signature, expiry, issuer, and — via
// WithValidMethods — that the algorithm really is HS256, which blocks
// algorithm-confusion tokens.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return Identity{}, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{UserID: c.Subject, IsAdmin: c.Admin}, nil
}
