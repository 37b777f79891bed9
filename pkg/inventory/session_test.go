package inventory_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/aussiebroadwan/inventory/pkg/invtest"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var firstPage = inventory.ListServersRequest{Limit: 5}

func TestAuthorizationHeaderSentOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, client := setup(t, nil)
	cred, ok := client.Session().Credential()
	require.True(t, ok)

	_, err := client.Servers.List(ctx, firstPage)
	require.NoError(t, err)

	reqs := b.RequestsTo(http.MethodGet, "/api/servers")
	require.Len(t, reqs, 1)
	require.Equal(t, []string{"Bearer " + cred.Token}, reqs[0].Authorization)
}

func TestNoTokenSendsUnauthenticated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b := invtest.Start(t)

	var reauth atomic.Int32
	session := inventory.NewSession(inventory.OnReauthRequired(func(error) { reauth.Add(1) }))
	client, err := inventory.New(b.URL, session)
	require.NoError(t, err)
	require.Equal(t, inventory.StateNoToken, session.State())

	_, err = client.Servers.Status(ctx)

	var authErr *inventory.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Nil(t, authErr.RefreshErr)
	require.True(t, httpx.IsUnauthorized(err))
	require.EqualValues(t, 1, reauth.Load())

	reqs := b.RequestsTo(http.MethodGet, "/api/servers/status")
	require.Len(t, reqs, 1)
	require.Empty(t, reqs[0].Authorization)
	require.Zero(t, b.RefreshCalls())
}

func TestUnauthorizedRefreshesAndRetriesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, client := setup(t, nil)
	before, _ := client.Session().Credential()

	b.ExpireTokens()

	page, err := client.Servers.List(ctx, firstPage)
	require.NoError(t, err)
	require.NotNil(t, page)

	require.Equal(t, 1, b.RefreshCalls())
	reqs := b.RequestsTo(http.MethodGet, "/api/servers")
	require.Len(t, reqs, 2)

	after, ok := client.Session().Credential()
	require.True(t, ok)
	require.NotEqual(t, before.Token, after.Token)
	require.Equal(t, before.RefreshToken, after.RefreshToken)
	require.Equal(t, []string{"Bearer " + after.Token}, reqs[1].Authorization)
	require.Equal(t, inventory.StateTokenValid, client.Session().State())
}

func TestFailedRefreshClearsCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &inventory.MemoryStore{}
	var reauthErr error
	b, client := setup(t, nil,
		inventory.WithStore(store),
		inventory.OnReauthRequired(func(err error) { reauthErr = err }),
	)

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, saved)

	b.ExpireTokens()
	b.FailRefresh(true)

	_, err = client.Servers.List(ctx, firstPage)

	var authErr *inventory.AuthError
	require.ErrorAs(t, err, &authErr)
	require.True(t, httpx.IsUnauthorized(authErr.Err))
	require.Error(t, authErr.RefreshErr)
	require.Error(t, reauthErr)

	require.Equal(t, 1, b.RefreshCalls())
	require.Len(t, b.RequestsTo(http.MethodGet, "/api/servers"), 1, "the request must not be retried")

	_, ok := client.Session().Credential()
	require.False(t, ok)
	require.Equal(t, inventory.StateRefreshFailed, client.Session().State())

	saved, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, saved)
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, client := setup(t, []invtest.Option{invtest.WithRefreshDelay(100 * time.Millisecond)})
	b.ExpireTokens()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.Servers.Status(ctx)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, b.RefreshCalls())
}

func TestRefreshWaiterCanGiveUp(t *testing.T) {
	t.Parallel()

	b, client := setup(t, []invtest.Option{invtest.WithRefreshDelay(300 * time.Millisecond)})
	b.ExpireTokens()

	var wg sync.WaitGroup
	var patientErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, patientErr = client.Servers.Status(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := client.Servers.Status(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var authErr *inventory.AuthError
	require.False(t, errors.As(err, &authErr))

	wg.Wait()
	require.NoError(t, patientErr)
	require.Equal(t, 1, b.RefreshCalls())
}

func TestProactiveRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	b, client := setup(t,
		[]invtest.Option{invtest.WithClock(clock), invtest.WithAccessTTL(10 * time.Minute)},
		inventory.WithClock(clock),
		inventory.WithRefreshBefore(time.Minute),
	)

	_, err := client.Servers.Status(ctx)
	require.NoError(t, err)
	require.Zero(t, b.RefreshCalls())

	clock.Advance(9*time.Minute + 30*time.Second)

	_, err = client.Servers.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, b.RefreshCalls())
	require.Len(t, b.RequestsTo(http.MethodGet, "/api/servers/status"), 2, "no request should have been rejected")

	cred, _ := client.Session().Credential()
	require.WithinDuration(t, clock.Now().Add(10*time.Minute), cred.ExpiresAt, time.Second)
}

// rejectingBackend logs in with loginBody and answers 401 to everything
// except /login and /refresh.
func rejectingBackend(t *testing.T, loginBody map[string]string) (url string, refreshes, calls *atomic.Int32) {
	t.Helper()

	refreshes, calls = new(atomic.Int32), new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			httpx.WriteJSON(w, http.StatusOK, loginBody)
		case "/refresh":
			refreshes.Add(1)
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"token": "t2"})
		default:
			calls.Add(1)
			httpx.WriteMessage(w, http.StatusUnauthorized, "nope")
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL, refreshes, calls
}

func TestUnauthorizedAfterReplayIsAuthError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	url, refreshes, calls := rejectingBackend(t, map[string]string{"token": "t1", "refreshToken": "r1"})

	store := &inventory.MemoryStore{}
	var reauth atomic.Int32
	session := inventory.NewSession(
		inventory.WithStore(store),
		inventory.OnReauthRequired(func(error) { reauth.Add(1) }),
	)
	client, err := inventory.New(url, session)
	require.NoError(t, err)
	_, err = client.Auth.Login(ctx, "a", "b")
	require.NoError(t, err)

	_, err = client.Servers.Status(ctx)
	var authErr *inventory.AuthError
	require.ErrorAs(t, err, &authErr)
	require.EqualValues(t, 1, refreshes.Load())
	require.EqualValues(t, 2, calls.Load())

	require.EqualValues(t, 1, reauth.Load())
	_, ok := session.Credential()
	require.False(t, ok)
	require.Equal(t, inventory.StateRefreshFailed, session.State())

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, saved)
}

func TestUnauthorizedWithoutRefreshTokenDiscardsCredential(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	url, refreshes, calls := rejectingBackend(t, map[string]string{"token": "t1"})

	store := &inventory.MemoryStore{}
	var reauth atomic.Int32
	session := inventory.NewSession(
		inventory.WithStore(store),
		inventory.OnReauthRequired(func(error) { reauth.Add(1) }),
	)
	client, err := inventory.New(url, session)
	require.NoError(t, err)
	_, err = client.Auth.Login(ctx, "a", "b")
	require.NoError(t, err)

	_, err = client.Servers.Status(ctx)
	var authErr *inventory.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Nil(t, authErr.RefreshErr)
	require.Zero(t, refreshes.Load())
	require.EqualValues(t, 1, calls.Load())

	require.EqualValues(t, 1, reauth.Load())
	_, ok := session.Credential()
	require.False(t, ok)
	require.Equal(t, inventory.StateRefreshFailed, session.State())

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, saved)
}

func TestConcurrentRejectionsReportReauthOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const callers = 4

	// Hold every request until all callers have sent theirs, so each one
	// carries the same token.
	var arrived sync.WaitGroup
	arrived.Add(callers)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"token": "t1"})
			return
		}
		arrived.Done()
		arrived.Wait()
		httpx.WriteMessage(w, http.StatusUnauthorized, "nope")
	}))
	t.Cleanup(srv.Close)

	var reauth atomic.Int32
	session := inventory.NewSession(inventory.OnReauthRequired(func(error) { reauth.Add(1) }))
	client, err := inventory.New(srv.URL, session)
	require.NoError(t, err)
	_, err = client.Auth.Login(ctx, "a", "b")
	require.NoError(t, err)

	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.Servers.Status(ctx)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		var authErr *inventory.AuthError
		require.ErrorAs(t, err, &authErr)
	}
	require.EqualValues(t, 1, reauth.Load())
	require.Equal(t, inventory.StateRefreshFailed, session.State())
}

func TestOtherErrorsPropagateUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, client := setup(t, nil)

	err := client.Servers.Delete(ctx, 999)
	var se *httpx.ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.StatusCode)
	require.Equal(t, "Server not found", se.Message)

	var authErr *inventory.AuthError
	require.False(t, errors.As(err, &authErr))
	require.Zero(t, b.RefreshCalls())
}

func TestRestoreFromStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b := invtest.Start(t)
	b.MustAddUser(t, adminUser, adminPass, invtest.RoleAdmin)

	store := &inventory.MemoryStore{}
	first, err := inventory.New(b.URL, inventory.NewSession(inventory.WithStore(store)))
	require.NoError(t, err)
	_, err = first.Auth.Login(ctx, adminUser, adminPass)
	require.NoError(t, err)

	session := inventory.NewSession(inventory.WithStore(store))
	require.NoError(t, session.Restore(ctx))
	require.Equal(t, inventory.StateTokenValid, session.State())
	require.Equal(t, adminUser, session.Username())

	second, err := inventory.New(b.URL, session)
	require.NoError(t, err)
	_, err = second.Servers.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, b.LoginCalls())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "no_token", inventory.StateNoToken.String())
	require.Equal(t, "refreshing", inventory.StateRefreshing.String())
	require.Equal(t, "state(9)", inventory.State(9).String())
}
