package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "inventory-backend"

func newSigner(t *testing.T) *jwtx.EdDSASigner {
	t.Helper()

	signer, err := jwtx.NewSignerEdDSA("test-key")
	require.NoError(t, err)
	return signer
}

func TestEdDSASignAndVerify(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	require.Equal(t, "test-key", signer.KID())

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("42", "alice", "admin", 5*time.Minute, exampleIssuer, []string{"api"}, now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, []string{"api"})
	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", parsed.Subject)
	require.Equal(t, "alice", parsed.Username)
	require.Equal(t, "admin", parsed.Role)
	require.NotEmpty(t, parsed.ID)
}

func TestEdDSAVerifyRejects(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	now := time.Now().UTC()

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewAccessClaims("1", "bob", "user", time.Minute, "someone-else", nil, now))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewAccessClaims("1", "bob", "user", time.Minute, exampleIssuer, nil, now))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil)
		v.Now = func() time.Time { return now.Add(2 * time.Minute) }
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("other key", func(t *testing.T) {
		other := newSigner(t)
		token, err := other.Sign(jwtx.NewAccessClaims("1", "bob", "user", time.Minute, exampleIssuer, nil, now))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil)
		_, err := v.Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestExpiresAt(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := signer.Sign(jwtx.NewAccessClaims("7", "carol", "user", time.Hour, exampleIssuer, nil, now))
	require.NoError(t, err)

	require.Equal(t, now.Add(time.Hour), jwtx.ExpiresAt(token).UTC())
	require.True(t, jwtx.ExpiresAt("not-a-jwt").IsZero())

	claims, err := jwtx.ParseUnverified(token)
	require.NoError(t, err)
	require.Equal(t, "carol", claims.Username)
}
