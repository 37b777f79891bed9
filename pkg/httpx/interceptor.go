package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// RequestInterceptor transforms outgoing requests. Either function may be nil,
// in which case the interceptor passes the request (or error) through.
type RequestInterceptor struct {
	Name string

	// OnRequest receives the request produced by the previous interceptor.
	OnRequest func(req *http.Request) (*http.Request, error)

	// OnError runs when an earlier interceptor failed. Returning a request and
	// a nil error recovers the chain.
	OnError func(req *http.Request, err error) (*http.Request, error)
}

// ResponseInterceptor transforms incoming responses. Either function may be
// nil, in which case the interceptor passes the response (or error) through.
type ResponseInterceptor struct {
	Name string

	// OnResponse runs on the success path.
	OnResponse func(x *Exchange, resp *http.Response) (*http.Response, error)

	// OnError runs on the failure path. Returning a response and a nil error
	// recovers the chain and later interceptors see a success.
	OnError func(x *Exchange, err error) (*http.Response, error)
}

// Exchange is a single round trip as seen by response interceptors.
type Exchange struct {
	client  *Client
	orig    *http.Request
	req     *http.Request
	attempt int
}

// Request returns the request as it was sent, after request interceptors ran.
func (x *Exchange) Request() *http.Request { return x.req }

// Context returns the request context.
func (x *Exchange) Context() context.Context { return x.req.Context() }

// Attempt is zero for the first send and increases with each Replay.
func (x *Exchange) Attempt() int { return x.attempt }

// Replay sends the original request again through the full interceptor chain.
// Request interceptors start from the request as the caller built it, so they
// observe any state changed since the first attempt (a rotated token, for
// example) and headers they add are produced afresh, the request id included.
func (x *Exchange) Replay() (*http.Response, error) {
	req, err := rewind(x.orig)
	if err != nil {
		return nil, err
	}
	return x.client.do(req, x.attempt+1)
}

// rewind clones req with a fresh body so it can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("httpx: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

// runRequestChain applies interceptors in registration order.
func runRequestChain(chain []RequestInterceptor, req *http.Request) (*http.Request, error) {
	var err error
	for _, ic := range chain {
		if err == nil {
			if ic.OnRequest == nil {
				continue
			}
			var next *http.Request
			next, err = ic.OnRequest(req)
			if err == nil {
				if next == nil {
					err = errors.New("httpx: interceptor " + ic.Name + " returned a nil request")
					continue
				}
				req = next
			}
			continue
		}

		if ic.OnError == nil {
			continue
		}
		var recovered *http.Request
		recovered, err = ic.OnError(req, err)
		if err == nil && recovered != nil {
			req = recovered
		}
	}
	return req, err
}

// runResponseChain applies interceptors in registration order. A failing
// round trip walks the OnError handlers until one recovers a response.
func runResponseChain(chain []ResponseInterceptor, x *Exchange, resp *http.Response, err error) (*http.Response, error) {
	for _, ic := range chain {
		if err == nil {
			if ic.OnResponse == nil {
				continue
			}
			resp, err = ic.OnResponse(x, resp)
			continue
		}

		if ic.OnError == nil {
			continue
		}
		var recovered *http.Response
		recovered, err = ic.OnError(x, err)
		if err == nil {
			if recovered == nil {
				return nil, errors.New("httpx: interceptor " + ic.Name + " recovered without a response")
			}
			resp = recovered
		}
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}
