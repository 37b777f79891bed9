package inventory_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/stretchr/testify/require"
)

func TestAuthErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := &httpx.ServerError{StatusCode: http.StatusUnauthorized, Method: "GET", URL: "http://x/servers"}
	refreshErr := errors.New("refresh rejected")
	err := error(&inventory.AuthError{Err: cause, RefreshErr: refreshErr})

	require.True(t, httpx.IsUnauthorized(err))
	require.ErrorIs(t, err, refreshErr)
	require.Contains(t, err.Error(), "refresh failed: refresh rejected")

	bare := &inventory.AuthError{Err: inventory.ErrNotAuthenticated}
	require.ErrorIs(t, bare, inventory.ErrNotAuthenticated)
	require.NotContains(t, bare.Error(), "refresh failed")
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &inventory.ValidationError{Fields: map[string]string{
		"toPage":   "must be greater than or equal to fromPage",
		"pageSize": "must be at least 1",
	}}

	require.Equal(t, "must be at least 1", err.Field("pageSize"))
	require.Empty(t, err.Field("sort"))
	// keys are reported in sorted order
	require.Less(t,
		strings.Index(err.Error(), "pageSize"),
		strings.Index(err.Error(), "toPage"))
}

func TestCredentialAuthorization(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Bearer abc", inventory.Credential{Token: "abc"}.Authorization())
	require.Equal(t, "Token abc", inventory.Credential{Token: "abc", TokenType: "Token"}.Authorization())
}
