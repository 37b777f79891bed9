package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseUnverified decodes the claims of a token without checking its
// signature. Clients use it to read exp and username from their own access
// token; never use it to make authorization decisions.
func ParseUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of an access token, or the zero time when
// the token is not a JWT or carries no exp.
func ExpiresAt(tokenStr string) time.Time {
	claims, err := ParseUnverified(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
