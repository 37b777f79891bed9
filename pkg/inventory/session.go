package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/aussiebroadwan/inventory/pkg/jwtx"
	"github.com/aussiebroadwan/inventory/pkg/slogx"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle position of a Session's credential.
type State int

const (
	StateNoToken State = iota
	StateTokenValid
	StateRefreshing
	StateRefreshFailed
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateTokenValid:
		return "token_valid"
	case StateRefreshing:
		return "refreshing"
	case StateRefreshFailed:
		return "refresh_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RefreshFunc exchanges a refresh token for a new credential.
type RefreshFunc func(ctx context.Context, refreshToken string) (*Credential, error)

// Session holds the credential shared by every service of a Client. The auth
// interceptor reads it at send time, so a refresh made by one request is seen
// by all later ones.
type Session struct {
	mu    sync.RWMutex
	cred  *Credential
	state State

	store         CredentialStore
	clock         clockwork.Clock
	refreshBefore time.Duration
	onReauth      func(error)

	refreshing singleflight.Group
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithStore persists the credential on every change.
func WithStore(store CredentialStore) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithClock replaces the clock used for expiry checks.
func WithClock(c clockwork.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// WithRefreshBefore refreshes the token before sending a request when it
// expires within d. Zero disables proactive refresh; a 401 still triggers one.
func WithRefreshBefore(d time.Duration) SessionOption {
	return func(s *Session) { s.refreshBefore = d }
}

// OnReauthRequired registers fn to be called when the credential has been
// discarded and the user must log in again.
func OnReauthRequired(fn func(error)) SessionOption {
	return func(s *Session) { s.onReauth = fn }
}

// NewSession returns an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads a previously saved credential from the store, if any.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	cred, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil || cred.Token == "" {
		return nil
	}

	s.mu.Lock()
	s.cred = cred
	s.state = StateTokenValid
	s.mu.Unlock()
	return nil
}

// Set installs cred as the active credential and persists it.
func (s *Session) Set(ctx context.Context, cred Credential) error {
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = jwtx.ExpiresAt(cred.Token)
	}

	s.mu.Lock()
	s.cred = &cred
	s.state = StateTokenValid
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, cred); err != nil {
			return fmt.Errorf("failed to save credential: %w", err)
		}
	}
	return nil
}

// Clear drops the credential and removes it from the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cred = nil
	s.state = StateNoToken
	s.mu.Unlock()

	return s.clearStore(ctx)
}

func (s *Session) clearStore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// Credential returns a copy of the active credential.
func (s *Session) Credential() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred == nil {
		return Credential{}, false
	}
	return *s.cred, true
}

// State reports where the session is in its lifecycle.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Username returns the username claim of the active token, or "" when the
// token is absent or carries none.
func (s *Session) Username() string {
	cred, ok := s.Credential()
	if !ok {
		return ""
	}
	claims, err := jwtx.ParseUnverified(cred.Token)
	if err != nil {
		return ""
	}
	return claims.Username
}

// refresh renews the credential that produced stale. Concurrent callers share
// a single call to fn. When the credential has already moved past stale the
// current one is returned without contacting the backend.
//
// The refresh itself is detached from ctx so one caller giving up does not
// fail it for the others; ctx only bounds how long this caller waits.
func (s *Session) refresh(ctx context.Context, fn RefreshFunc, stale string) (*Credential, error) {
	ch := s.refreshing.DoChan("refresh", func() (any, error) {
		return s.doRefresh(context.WithoutCancel(ctx), fn, stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Credential), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	}
}

func (s *Session) doRefresh(ctx context.Context, fn RefreshFunc, stale string) (*Credential, error) {
	s.mu.Lock()
	cur := s.cred
	switch {
	case cur == nil:
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	case cur.Token != stale:
		c := *cur
		s.mu.Unlock()
		return &c, nil
	case cur.RefreshToken == "":
		s.mu.Unlock()
		return nil, ErrNoRefreshToken
	}
	refreshToken := cur.RefreshToken
	s.state = StateRefreshing
	s.mu.Unlock()

	log := slogx.FromContext(ctx)

	next, err := fn(ctx, refreshToken)
	if err != nil {
		log.Warn("token refresh failed", "error", err)
		s.discard(ctx, stale, err)
		return nil, err
	}

	if next.RefreshToken == "" {
		next.RefreshToken = refreshToken
	}
	if err := s.Set(ctx, *next); err != nil {
		log.Warn("token refresh: persisting credential failed", "error", err)
	}
	log.Debug("token refreshed", "expires_at", next.ExpiresAt)

	c, _ := s.Credential()
	return &c, nil
}

// discard drops the credential holding token after the backend rejected it
// for good, and asks for a new login. A request sent without a token only
// triggers the callback. Nothing happens when the session has already moved
// on to another credential, so concurrent failures report once.
func (s *Session) discard(ctx context.Context, token string, cause error) {
	s.mu.Lock()
	cur := s.cred
	switch {
	case token == "":
		s.mu.Unlock()
		s.reauthRequired(cause)
		return
	case cur == nil || cur.Token != token:
		s.mu.Unlock()
		return
	}
	s.cred = nil
	s.state = StateRefreshFailed
	s.mu.Unlock()

	if err := s.clearStore(ctx); err != nil {
		slogx.FromContext(ctx).Warn("discarding credential: clearing store failed", "error", err)
	}
	s.reauthRequired(cause)
}

func (s *Session) reauthRequired(err error) {
	if s.onReauth != nil {
		s.onReauth(err)
	}
}

// expiresWithin reports whether cred expires in less than d.
func (s *Session) expiresWithin(cred Credential, d time.Duration) bool {
	if d <= 0 || cred.ExpiresAt.IsZero() {
		return false
	}
	return s.clock.Now().Add(d).After(cred.ExpiresAt)
}

// ============================================================================
// Auth interceptor
// ============================================================================

// Interceptors returns the auth interceptor pair bound to this session. fn is
// used to renew the token; it must not itself go through these interceptors.
//
// The response side replays a 401 once after a successful refresh, so it
// should be registered last.
func (s *Session) Interceptors(fn RefreshFunc) (httpx.RequestInterceptor, httpx.ResponseInterceptor) {
	req := httpx.RequestInterceptor{
		Name: "auth",
		OnRequest: func(r *http.Request) (*http.Request, error) {
			cred, ok := s.Credential()
			if !ok {
				r.Header.Del("Authorization")
				return r, nil
			}

			if cred.RefreshToken != "" && s.expiresWithin(cred, s.refreshBefore) {
				next, err := s.refresh(r.Context(), fn, cred.Token)
				if err != nil {
					if r.Context().Err() != nil {
						return nil, err
					}
					return nil, &AuthError{Err: errors.New("token expired"), RefreshErr: err}
				}
				cred = *next
			}

			r.Header.Set("Authorization", cred.Authorization())
			return r, nil
		},
	}

	resp := httpx.ResponseInterceptor{
		Name: "auth",
		OnError: func(x *httpx.Exchange, err error) (*http.Response, error) {
			if !httpx.IsUnauthorized(err) {
				return nil, err
			}
			ctx := x.Context()
			token := sentToken(x.Request())
			if x.Attempt() > 0 {
				s.discard(context.WithoutCancel(ctx), token, err)
				return nil, &AuthError{Err: err}
			}

			_, rerr := s.refresh(ctx, fn, token)
			switch {
			case rerr == nil:
				return x.Replay()
			case ctx.Err() != nil:
				return nil, rerr
			case errors.Is(rerr, ErrNotAuthenticated), errors.Is(rerr, ErrNoRefreshToken):
				s.discard(context.WithoutCancel(ctx), token, err)
				return nil, &AuthError{Err: err}
			default:
				return nil, &AuthError{Err: err, RefreshErr: rerr}
			}
		},
	}

	return req, resp
}

// sentToken extracts the token the request was sent with.
func sentToken(r *http.Request) string {
	_, token, _ := strings.Cut(r.Header.Get("Authorization"), " ")
	return token
}
