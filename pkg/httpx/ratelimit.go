package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// ClientLimit is the default outgoing request budget for a client process.
// Override with: RATELIMIT_CLIENT_REQUESTS, RATELIMIT_CLIENT_WINDOW_SEC, RATELIMIT_CLIENT_BURST
var ClientLimit = RateLimitConfig{
	RequestsPerWindow: 600,
	Window:            time.Minute,
	Burst:             50,
}

func init() {
	ClientLimit = ParseRateLimitFromEnv("CLIENT", ClientLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_CLIENT_REQUESTS, RATELIMIT_CLIENT_WINDOW_SEC, RATELIMIT_CLIENT_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// Limit converts the window-based configuration into a token rate.
func (c RateLimitConfig) Limit() rate.Limit {
	if c.RequestsPerWindow <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// RateLimit returns a request interceptor that delays outgoing requests to
// stay within config. Share the returned interceptor between clients to
// share one budget. Waiting honours the request context.
func RateLimit(config RateLimitConfig) RequestInterceptor {
	limiter := rate.NewLimiter(config.Limit(), max(config.Burst, 1))

	return RequestInterceptor{
		Name: "ratelimit",
		OnRequest: func(req *http.Request) (*http.Request, error) {
			ctx := req.Context()

			if limiter.Allow() {
				return req, nil
			}

			slogx.FromContext(ctx).Debug("rate limit: waiting for token",
				"method", req.Method,
				"url", req.URL.String(),
			)

			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
			return req, nil
		},
	}
}
