package httpx_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func tag(name string, order *[]string) httpx.RequestInterceptor {
	return httpx.RequestInterceptor{
		Name: name,
		OnRequest: func(r *http.Request) (*http.Request, error) {
			*order = append(*order, name)
			r.Header.Add("X-Chain", name)
			return r, nil
		},
	}
}

func TestURL(t *testing.T) {
	t.Parallel()

	c := httpx.New("http://backend/api/servers/")
	require.Equal(t, "http://backend/api/servers", c.BaseURL())
	require.Equal(t, "http://backend/api/servers", c.URL(""))
	require.Equal(t, "http://backend/api/servers/status", c.URL("status"))
	require.Equal(t, "http://backend/api/servers/7", c.URL("/7"))
	require.Equal(t, "http://backend/api/servers?limit=1", c.URL("?limit=1"))
}

func TestRequestChainOrder(t *testing.T) {
	t.Parallel()

	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Values("X-Chain")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	var order []string
	c := httpx.New(srv.URL, httpx.WithRequestInterceptors(tag("a", &order), tag("b", &order), tag("c", &order)))

	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestRequestChainRecovery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	boom := errors.New("boom")
	var skipped bool

	c := httpx.New(srv.URL, httpx.WithRequestInterceptors(
		httpx.RequestInterceptor{Name: "fail", OnRequest: func(r *http.Request) (*http.Request, error) { return nil, boom }},
		httpx.RequestInterceptor{Name: "skipped", OnRequest: func(r *http.Request) (*http.Request, error) {
			skipped = true
			return r, nil
		}},
		httpx.RequestInterceptor{Name: "recover", OnError: func(r *http.Request, err error) (*http.Request, error) {
			require.ErrorIs(t, err, boom)
			return r, nil
		}},
	))

	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.False(t, skipped)
}

func TestRequestChainFailureSkipsTransport(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	c := httpx.New(srv.URL, httpx.WithRequestInterceptors(httpx.RequestInterceptor{
		Name:      "nil",
		OnRequest: func(r *http.Request) (*http.Request, error) { return nil, nil },
	}))

	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.ErrorContains(t, err, "nil request")
	require.Zero(t, hits.Load())
}

func TestResponseChainRecoversWithReplay(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, `{"name":"web"}`, string(body))
		if calls.Add(1) == 1 {
			httpx.WriteMessage(w, http.StatusServiceUnavailable, "warming up")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))
	t.Cleanup(srv.Close)

	var attempts []int
	retryOnce := httpx.ResponseInterceptor{
		Name: "retry",
		OnError: func(x *httpx.Exchange, err error) (*http.Response, error) {
			attempts = append(attempts, x.Attempt())
			if x.Attempt() > 0 || !httpx.IsStatus(err, http.StatusServiceUnavailable) {
				return nil, err
			}
			return x.Replay()
		},
	}

	c := httpx.New(srv.URL, httpx.WithResponseInterceptors(httpx.CommonResponse(), retryOnce))

	req, err := c.NewJSONRequest(context.Background(), http.MethodPost, "", map[string]string{"name": "web"})
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, []int{0}, attempts)
}

func TestReplayGetsFreshRequestID(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		n := len(ids)
		mu.Unlock()
		if n%2 == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	retryOnce := httpx.ResponseInterceptor{
		Name: "retry",
		OnError: func(x *httpx.Exchange, err error) (*http.Response, error) {
			if x.Attempt() > 0 {
				return nil, err
			}
			return x.Replay()
		},
	}
	c := httpx.New(srv.URL, httpx.Use(httpx.CommonRequest(""), httpx.CommonResponse()), httpx.WithResponseInterceptors(retryOnce))

	send := func(t *testing.T, header string) {
		t.Helper()
		req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("X-Request-ID", header)
		}
		resp, err := c.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	t.Run("generated", func(t *testing.T) {
		send(t, "")
		mu.Lock()
		defer mu.Unlock()
		require.Len(t, ids, 2)
		require.NotEmpty(t, ids[0])
		require.NotEmpty(t, ids[1])
		require.NotEqual(t, ids[0], ids[1])
	})

	t.Run("caller supplied", func(t *testing.T) {
		send(t, "trace-1")
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"trace-1", "trace-1"}, ids[2:])
	})
}

func TestResponseRecoveryWithoutResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := httpx.New(srv.URL, httpx.WithResponseInterceptors(httpx.CommonResponse(), httpx.ResponseInterceptor{
		Name:    "swallow",
		OnError: func(*httpx.Exchange, error) (*http.Response, error) { return nil, nil },
	}))

	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.ErrorContains(t, err, "swallow")
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := httpx.New(url)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	var te *httpx.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.MethodGet, te.Method)
}

func TestTimeoutAndCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	t.Run("client timeout", func(t *testing.T) {
		c := httpx.New(srv.URL, httpx.WithTimeout(50*time.Millisecond))
		req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
		require.NoError(t, err)

		_, err = c.Do(req)
		var te *httpx.TransportError
		require.ErrorAs(t, err, &te)
	})

	t.Run("context cancelled", func(t *testing.T) {
		c := httpx.New(srv.URL)
		ctx, cancel := context.WithCancel(context.Background())
		req, err := c.NewRequest(ctx, http.MethodGet, "", nil)
		require.NoError(t, err)

		time.AfterFunc(20*time.Millisecond, cancel)
		_, err = c.Do(req)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestHTTPClientIsCopied(t *testing.T) {
	t.Parallel()

	var sent atomic.Int32
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		sent.Add(1)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})}

	t.Run("default timeout", func(t *testing.T) {
		c := httpx.New("http://inventory.test", httpx.WithHTTPClient(hc))
		require.Equal(t, httpx.DefaultTimeout, c.Timeout())
		require.Zero(t, hc.Timeout)
	})

	t.Run("explicit timeout", func(t *testing.T) {
		c := httpx.New("http://inventory.test", httpx.WithHTTPClient(hc), httpx.WithTimeout(3*time.Second))
		require.Equal(t, 3*time.Second, c.Timeout())
		require.Zero(t, hc.Timeout)

		req, err := c.NewRequest(context.Background(), http.MethodGet, "", nil)
		require.NoError(t, err)
		resp, err := c.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.EqualValues(t, 1, sent.Load(), "the caller's transport is shared")
	})

	t.Run("caller timeout kept", func(t *testing.T) {
		own := &http.Client{Timeout: time.Second}
		c := httpx.New("http://inventory.test", httpx.WithHTTPClient(own))
		require.Equal(t, time.Second, c.Timeout())
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestDefaultHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "invctl/test", r.Header.Get("User-Agent"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.Equal(t, "yes", r.Header.Get("X-Extra"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := httpx.New(srv.URL,
		httpx.WithHeader("X-Extra", "yes"),
		httpx.WithRequestInterceptors(httpx.CommonRequest("invctl/test")),
	)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "", strings.NewReader(""))
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
}
