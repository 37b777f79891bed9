package cryptox_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/inventory/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.DefaultParams.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))

	t.Run("matching password", func(t *testing.T) {
		require.NoError(t, cryptox.VerifyPassword("correct horse battery staple", hash))
	})

	t.Run("wrong password", func(t *testing.T) {
		require.ErrorIs(t, cryptox.VerifyPassword("Tr0ub4dor&3", hash), cryptox.ErrPasswordMismatch)
	})

	t.Run("malformed hash", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"$argon2id$v=19$broken",
			"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
			"$argon2id$v=16$m=64,t=1,p=1$c2FsdA$a2V5",
			"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
			"$argon2id$v=19$m=64,t=1,p=1$!!$a2V5",
		} {
			require.ErrorIs(t, cryptox.VerifyPassword("x", bad), cryptox.ErrMalformedHash, bad)
		}
	})
}

func TestParamsAreReadFromHash(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.FastParams.Hash("secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))

	require.NoError(t, cryptox.VerifyPassword("secret", hash))
	require.ErrorIs(t, cryptox.VerifyPassword("Secret", hash), cryptox.ErrPasswordMismatch)
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	t.Parallel()

	a, err := cryptox.FastParams.Hash("secret")
	require.NoError(t, err)
	b, err := cryptox.FastParams.Hash("secret")
	require.NoError(t, err)

	require.NotEqual(t, a, b, "same password should hash differently with a new salt")
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	pw, err := cryptox.GeneratePassword()
	require.NoError(t, err)
	require.Len(t, pw, 12)
	require.False(t, strings.ContainsAny(pw, "0O1lI"))
}
