package inventory

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/jwtx"
)

// AuthService talks to the login and refresh endpoints. Its client carries
// only the common interceptors, never the auth pair.
type AuthService struct {
	service
	session *Session
}

// Login exchanges a username and password for a credential and installs it
// in the session.
func (a *AuthService) Login(ctx context.Context, username, password string) (*Credential, error) {
	var tr tokenResponse
	err := a.doJSON(ctx, http.MethodPost, "login", loginRequest{Username: username, Password: password}, &tr)
	if err != nil {
		return nil, err
	}

	cred, err := tr.credential()
	if err != nil {
		return nil, err
	}
	if err := a.session.Set(ctx, *cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Refresh exchanges refreshToken for a new credential. It does not touch the
// session; the auth interceptor installs the result itself.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	var tr tokenResponse
	if err := a.doJSON(ctx, http.MethodPost, "refresh", refreshRequest{RefreshToken: refreshToken}, &tr); err != nil {
		return nil, err
	}

	cred, err := tr.credential()
	if err != nil {
		return nil, err
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

// Logout forgets the credential locally. The backend keeps no session state.
func (a *AuthService) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}

func (tr tokenResponse) credential() (*Credential, error) {
	if tr.Token == "" {
		return nil, errors.New("failed to decode response: missing token")
	}

	cred := &Credential{
		Token:        tr.Token,
		TokenType:    tr.TypeToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    parseExpireTime(tr.ExpireTime),
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = jwtx.ExpiresAt(tr.Token)
	}
	return cred, nil
}

// parseExpireTime accepts RFC 3339 or unix seconds. Anything else yields the
// zero time and the caller falls back to the token's exp claim.
func parseExpireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}
