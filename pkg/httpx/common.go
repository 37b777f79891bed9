package httpx

import (
	"io"
	"net/http"

	"github.com/aussiebroadwan/inventory/pkg/idx"
)

// maxErrorBody caps how much of a failed response is buffered.
const maxErrorBody = 1 << 20

// CommonRequest fills in the headers every service sends: Accept, a
// User-Agent and an X-Request-ID when the caller has not set one.
func CommonRequest(userAgent string) RequestInterceptor {
	return RequestInterceptor{
		Name: "common",
		OnRequest: func(req *http.Request) (*http.Request, error) {
			if req.Header.Get("Accept") == "" {
				req.Header.Set("Accept", "application/json")
			}
			if userAgent != "" && req.Header.Get("User-Agent") == "" {
				req.Header.Set("User-Agent", userAgent)
			}
			if req.Header.Get("X-Request-ID") == "" {
				req.Header.Set("X-Request-ID", idx.New().String())
			}
			return req, nil
		},
	}
}

// CommonResponse turns non-2xx responses into *ServerError so that later
// interceptors and callers only ever see successful responses on the success
// path.
func CommonResponse() ResponseInterceptor {
	return ResponseInterceptor{
		Name: "common",
		OnResponse: func(_ *Exchange, resp *http.Response) (*http.Response, error) {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, NewServerError(resp, body)
		},
	}
}
