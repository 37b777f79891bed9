package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestServerErrorMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"message envelope", `{"message":"Server not found"}`, "Server not found"},
		{"oauth envelope", `{"error":"invalid_grant","error_description":"expired"}`, "invalid_grant: expired"},
		{"json string", `"Report sent successfully"`, "Report sent successfully"},
		{"raw text", "bad gateway\n", "bad gateway"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			c := httpx.New(srv.URL, httpx.WithResponseInterceptors(httpx.CommonResponse()))
			req, err := c.NewRequest(context.Background(), http.MethodDelete, "42", nil)
			require.NoError(t, err)

			_, err = c.Do(req)
			var se *httpx.ServerError
			require.ErrorAs(t, err, &se)
			require.Equal(t, http.StatusNotFound, se.StatusCode)
			require.Equal(t, http.MethodDelete, se.Method)
			require.True(t, strings.HasSuffix(se.URL, "/42"))
			require.Equal(t, tc.want, se.Message)
			require.True(t, httpx.IsStatus(err, http.StatusNotFound))
			require.False(t, httpx.IsUnauthorized(err))
		})
	}
}

func TestServerErrorTruncatesRawBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	t.Cleanup(srv.Close)

	c := httpx.New(srv.URL, httpx.WithResponseInterceptors(httpx.CommonResponse()))
	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	var se *httpx.ServerError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Message, 512)
	require.Len(t, se.Body, 2000)
}
