/*
Package inventory is a client SDK for the server-inventory backend: servers,
users and emailed status reports.

# Client and Session

A Client groups one service per backend resource. Each service owns an
httpx.Client with its own base URL and interceptor chain, and all of them share
a Session holding the current credential:

	session := inventory.NewSession(
		inventory.WithStore(store),
		inventory.OnReauthRequired(func(err error) { fmt.Println("please log in again") }),
	)
	client, err := inventory.New("http://localhost:8090/api", session,
		inventory.WithLogger(logger),
		inventory.WithTimeout(5*time.Second),
	)

	_, err = client.Auth.Login(ctx, "admin", "secret")
	page, err := client.Servers.List(ctx, inventory.ListServersRequest{Limit: 5})

There is no package-level state. Two Clients built over one Session see the
same credential.

# Interceptor chain

Requests pass through the request interceptors in registration order, the
response through the response interceptors in the same order:

	common -> rate limit -> logging -> metrics -> custom -> auth

The common pair sets Accept, User-Agent and X-Request-ID and turns non-2xx
responses into *httpx.ServerError. The auth pair comes last. The Auth service
never carries it, so refreshing cannot recurse.

# Token refresh

The auth interceptor reads the credential at send time and sets
"Authorization: <type> <token>". When the backend answers 401:

 1. If the session holds a refresh token, it is exchanged for a new access
    token exactly once, and the failed request is replayed exactly once.
 2. If the refresh fails, the credential is cleared (and removed from the
    store), OnReauthRequired is called and the caller receives an *AuthError.
    The request is not retried.
 3. A 401 on the replayed request is returned as an *AuthError.

Concurrent 401s share one refresh call. A request that failed with a token
that has since been replaced is replayed with the new token without another
refresh. Callers waiting on a refresh may give up through their own context
without cancelling it for the others.

WithRefreshBefore additionally renews a token that is about to expire before
the request is sent.

# Errors

All failures are returned, never panicked:

  - *httpx.TransportError: the request never got a response.
  - *httpx.ServerError: the backend answered with a non-2xx status.
  - *AuthError: a 401 could not be recovered by refreshing.
  - *ValidationError: client-side input was rejected before sending.

Use errors.As to tell them apart.

# Import and export

Import uploads one workbook in the multipart field "listserver". Build one
with WriteImportWorkbook. Export downloads the workbook for a page of servers;
zero request fields take the defaults limit=10, offset=0, status=true,
field=id, order=asc. DownloadExport saves it as export.xlsx in a directory.
ExportForm validates the user-facing export dialog and maps it to an
ExportServersRequest.
*/
package inventory
