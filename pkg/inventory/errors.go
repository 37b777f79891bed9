package inventory

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrNotAuthenticated is returned when a refresh is needed but the session
	// holds no credential.
	ErrNotAuthenticated = errors.New("inventory: not authenticated")

	// ErrNoRefreshToken is returned when the credential cannot be renewed.
	ErrNoRefreshToken = errors.New("inventory: no refresh token")
)

// AuthError is returned when the backend rejected a request with 401 and the
// session could not recover by refreshing its token. The session has been
// cleared by the time the caller sees it; the user must log in again.
type AuthError struct {
	// Err is the failure that triggered re-authentication, usually a 401
	// *httpx.ServerError.
	Err error

	// RefreshErr is why the refresh failed, if one was attempted.
	RefreshErr error
}

func (e *AuthError) Error() string {
	if e.RefreshErr != nil {
		return fmt.Sprintf("authentication required: %v (refresh failed: %v)", e.Err, e.RefreshErr)
	}
	return fmt.Sprintf("authentication required: %v", e.Err)
}

func (e *AuthError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.RefreshErr != nil {
		errs = append(errs, e.RefreshErr)
	}
	return errs
}

// ValidationError carries field-level messages for invalid client-side input,
// keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for field, or "".
func (e *ValidationError) Field(field string) string {
	return e.Fields[field]
}
