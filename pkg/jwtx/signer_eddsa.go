package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints access tokens.
type Signer interface {
	KID() string
	Sign(Claims) (string, error)
}

// EdDSASigner signs tokens with a single Ed25519 key. The key lives only in
// memory: tokens minted by one process do not verify in another.
type EdDSASigner struct {
	kid string
	key ed25519.PrivateKey
}

// NewSignerEdDSA generates a fresh key pair identified by kid.
func NewSignerEdDSA(kid string) (*EdDSASigner, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to generate Ed25519 key: %w", err)
	}
	return &EdDSASigner{kid: kid, key: key}, nil
}

func (s *EdDSASigner) KID() string { return s.kid }

// PublicKey returns the key a Verifier needs for this signer's tokens.
func (s *EdDSASigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// Sign returns claims as a compact JWS with the kid header set.
func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
