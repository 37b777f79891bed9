package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519) by a single key.
type EdDSAVerifier struct {
	kid    string
	pub    ed25519.PublicKey
	issuer string
	aud    []string

	// Now returns the instant used for exp/nbf checks. Defaults to time.Now.
	Now func() time.Time
}

// NewVerifierEdDSA creates a verifier for tokens signed with the given key.
func NewVerifierEdDSA(kid string, pub ed25519.PublicKey, issuer string, aud []string) *EdDSAVerifier {
	return &EdDSAVerifier{kid: kid, pub: pub, issuer: issuer, aud: aud, Now: time.Now}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(tokenStr string) (*Claims, error) {
	// Expiry is checked below against v.Now so tests can drive the clock.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}
		if kid != v.kid {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		return v.pub, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case err != nil:
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("jwtx: invalid token claims")
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateAudience(v.aud); err != nil {
		return nil, err
	}
	if err := claims.ValidateExpiryAt(v.Now()); err != nil {
		return nil, err
	}

	return claims, nil
}
