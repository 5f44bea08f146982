package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// ErrInvalidCredential covers every way a bearer token can fail
// verification: malformed, wrong algorithm, bad signature, expired.
// Callers treat all of them as unauthenticated.
var ErrInvalidCredential = fmt.Errorf("auth: invalid credential: %w", httpx.ErrUnauthenticated)

// Tokens mints and verifies HS256 bearer tokens. Verification is a pure
// function of the token string and the signing secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens constructs a Tokens with the given signing secret and lifetime.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token for userID.
func (t *Tokens) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates structure, signature and expiry, and returns the
// embedded subject ID. Every failure maps to ErrInvalidCredential.
func (t *Tokens) Verify(tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidCredential
	}
	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidCredential
	}
	return subject, nil
}
