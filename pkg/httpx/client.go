package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every round trip unless WithTimeout or a client
// passed to WithHTTPClient sets another one.
const DefaultTimeout = 10 * time.Second

// Client sends requests relative to a fixed base URL through ordered request
// and response interceptor chains. It is safe for concurrent use once built.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header

	requestChain  []RequestInterceptor
	responseChain []ResponseInterceptor
}

// Option configures a Client at build time.
type Option func(*Client)

// WithHTTPClient sends requests through a copy of hc, sharing its Transport
// and Jar. hc itself is never modified. A zero Timeout becomes DefaultTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		if cp.Timeout == 0 {
			cp.Timeout = DefaultTimeout
		}
		c.httpClient = &cp
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		cp := *c.httpClient
		cp.Timeout = d
		c.httpClient = &cp
	}
}

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRequestInterceptors appends request interceptors in order.
func WithRequestInterceptors(ics ...RequestInterceptor) Option {
	return func(c *Client) {
		c.requestChain = append(c.requestChain, ics...)
	}
}

// WithResponseInterceptors appends response interceptors in order.
func WithResponseInterceptors(ics ...ResponseInterceptor) Option {
	return func(c *Client) {
		c.responseChain = append(c.responseChain, ics...)
	}
}

// Use appends a request/response interceptor pair. Either side may be the
// zero value.
func Use(req RequestInterceptor, resp ResponseInterceptor) Option {
	return func(c *Client) {
		if req.OnRequest != nil || req.OnError != nil {
			c.requestChain = append(c.requestChain, req)
		}
		if resp.OnResponse != nil || resp.OnError != nil {
			c.responseChain = append(c.responseChain, resp)
		}
	}
}

// New builds a Client for baseURL. Interceptors are fixed once New returns.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout reports the per-request timeout of the underlying *http.Client.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

// URL joins path onto the base URL. An empty path addresses the base itself.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "?") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// NewRequest builds a request relative to the base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

// NewJSONRequest builds a request with v encoded as the JSON body.
func (c *Client) NewJSONRequest(ctx context.Context, method, path string, v any) (*http.Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.NewRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Do sends req through the interceptor chains. The caller owns the returned
// response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req, 0)
}

func (c *Client) do(req *http.Request, attempt int) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: nil request")
	}
	// Interceptors edit headers in place; replays start again from this copy.
	orig := req.Clone(req.Context())

	req, err := runRequestChain(c.requestChain, req)
	if err != nil {
		return nil, err
	}

	x := &Exchange{client: c, orig: orig, req: req, attempt: attempt}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	return runResponseChain(c.responseChain, x, resp, err)
}
