package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/slogx"
)

type startKey struct{}

// Logging returns an interceptor pair that logs every round trip. The request
// side attaches a contextual logger (with req_id) to the request context, so
// it must be registered after CommonRequest to pick up the request id.
func Logging(base *slog.Logger) (RequestInterceptor, ResponseInterceptor) {
	req := RequestInterceptor{
		Name: "logging",
		OnRequest: func(r *http.Request) (*http.Request, error) {
			logger := base.With(
				"req_id", r.Header.Get("X-Request-ID"),
				"method", r.Method,
				"url", r.URL.String(),
			)
			ctx := slogx.WithContext(r.Context(), logger)
			ctx = context.WithValue(ctx, startKey{}, time.Now())
			return r.WithContext(ctx), nil
		},
	}

	resp := ResponseInterceptor{
		Name: "logging",
		OnResponse: func(x *Exchange, r *http.Response) (*http.Response, error) {
			slogx.FromContext(x.Context()).Debug("http_response",
				"status", r.StatusCode,
				"attempt", x.Attempt(),
				"duration_ms", elapsed(x.Context()).Milliseconds(),
			)
			return r, nil
		},
		OnError: func(x *Exchange, err error) (*http.Response, error) {
			slogx.FromContext(x.Context()).Warn("http_request_failed",
				"attempt", x.Attempt(),
				"duration_ms", elapsed(x.Context()).Milliseconds(),
				"error", err,
			)
			return nil, err
		},
	}

	return req, resp
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
