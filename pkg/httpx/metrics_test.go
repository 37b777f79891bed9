package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	m := httpx.NewMetrics(reg)
	mreq, mresp := m.Interceptors("servers")

	replay := httpx.ResponseInterceptor{
		Name: "replay",
		OnError: func(x *httpx.Exchange, err error) (*http.Response, error) {
			if x.Attempt() == 0 && httpx.IsUnauthorized(err) {
				return x.Replay()
			}
			return nil, err
		},
	}

	c := httpx.New(srv.URL,
		httpx.WithRequestInterceptors(mreq),
		httpx.WithResponseInterceptors(httpx.CommonResponse(), mresp, replay),
	)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("servers", "GET", "401")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("servers", "GET", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues("servers", "GET")))
	require.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}
