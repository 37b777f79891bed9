package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 2}

	t.Setenv("RATELIMIT_TEST_REQUESTS", "120")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_TEST_BURST", "-1")

	got := httpx.ParseRateLimitFromEnv("TEST", def)
	require.Equal(t, 120, got.RequestsPerWindow)
	require.Equal(t, 30*time.Second, got.Window)
	require.Equal(t, 2, got.Burst, "invalid values keep the default")
	require.InDelta(t, 4.0, float64(got.Limit()), 0.0001)
}

func TestRateLimitConfigZeroIsUnlimited(t *testing.T) {
	t.Parallel()

	require.Equal(t, rate.Inf, httpx.RateLimitConfig{}.Limit())
}

func TestRateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	c := httpx.New(srv.URL, httpx.WithRequestInterceptors(httpx.RateLimit(httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Hour,
		Burst:             1,
	})))

	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err = c.NewRequest(ctx, http.MethodGet, "", nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.ErrorContains(t, err, "rate limit wait")
}
