package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
)

// DefaultUserAgent is sent unless WithUserAgent overrides it.
const DefaultUserAgent = "inventory-go"

// Client bundles the domain services of one backend. Every service owns its
// own httpx.Client; all of them share the Session.
type Client struct {
	Auth    *AuthService
	Servers *ServerService
	Users   *UserService
	Mail    *MailService

	session *Session
}

type config struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
	metrics    *httpx.Metrics
	rateLimit  *httpx.RateLimitConfig

	extraReq  []httpx.RequestInterceptor
	extraResp []httpx.ResponseInterceptor
}

// Option configures a Client.
type Option func(*config)

// WithHTTPClient sends requests through a copy of hc. hc is not modified; a
// zero Timeout on it still gets the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithTimeout bounds each round trip. Defaults to httpx.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(c *config) { c.userAgent = ua }
}

// WithLogger logs every round trip at debug level and failures at warn.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics records request counts and latencies, labelled per service.
func WithMetrics(m *httpx.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithRateLimit throttles outgoing requests. All services share one budget.
func WithRateLimit(cfg httpx.RateLimitConfig) Option {
	return func(c *config) { c.rateLimit = &cfg }
}

// WithInterceptors adds a custom pair to every domain service, after the
// built-in interceptors and before the auth pair. Either side may be zero.
func WithInterceptors(req httpx.RequestInterceptor, resp httpx.ResponseInterceptor) Option {
	return func(c *config) {
		if req.OnRequest != nil || req.OnError != nil {
			c.extraReq = append(c.extraReq, req)
		}
		if resp.OnResponse != nil || resp.OnError != nil {
			c.extraResp = append(c.extraResp, resp)
		}
	}
}

// New builds a Client for the backend at baseURL (e.g. http://host:8090/api).
// A nil session gets a fresh in-memory one.
func New(baseURL string, session *Session, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = NewSession()
	}

	cfg := config{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(&cfg)
	}

	var limiter *httpx.RequestInterceptor
	if cfg.rateLimit != nil {
		rl := httpx.RateLimit(*cfg.rateLimit)
		limiter = &rl
	}

	// common builds the chain every service starts with, in order: common,
	// rate limit, logging, metrics, then caller-supplied interceptors.
	common := func(name string) []httpx.Option {
		chain := []httpx.Option{
			httpx.Use(httpx.CommonRequest(cfg.userAgent), httpx.CommonResponse()),
		}
		if cfg.httpClient != nil {
			chain = append(chain, httpx.WithHTTPClient(cfg.httpClient))
		}
		if cfg.timeout > 0 {
			chain = append(chain, httpx.WithTimeout(cfg.timeout))
		}
		if limiter != nil {
			chain = append(chain, httpx.WithRequestInterceptors(*limiter))
		}
		if cfg.logger != nil {
			chain = append(chain, httpx.Use(httpx.Logging(cfg.logger.With("service", name))))
		}
		if cfg.metrics != nil {
			chain = append(chain, httpx.Use(cfg.metrics.Interceptors(name)))
		}
		return chain
	}

	auth := &AuthService{
		service: service{http: httpx.New(base, common("auth")...)},
		session: session,
	}

	authReq, authResp := session.Interceptors(auth.Refresh)
	domain := func(name, path string) service {
		chain := append(common(name),
			httpx.WithRequestInterceptors(cfg.extraReq...),
			httpx.WithResponseInterceptors(cfg.extraResp...),
			httpx.Use(authReq, authResp),
		)
		return service{http: httpx.New(base+path, chain...)}
	}

	return &Client{
		Auth:    auth,
		Servers: &ServerService{service: domain("servers", "/servers")},
		Users:   &UserService{service: domain("users", "/users")},
		Mail:    &MailService{service: domain("mail", "/servers")},
		session: session,
	}, nil
}

// Session returns the session shared by the services.
func (c *Client) Session() *Session { return c.session }

func parseBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("inventory: base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("inventory: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("inventory: base URL must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("inventory: base URL has no host: %q", raw)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}
